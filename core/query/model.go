package query

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/asaidimu/go-events"
	"github.com/asaidimu/go-reportql/core/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLimit is the row limit a fresh model starts with.
const DefaultLimit = 25

// ModelOptions configures a Model.
type ModelOptions struct {
	Logger       *zap.Logger
	JoinPatterns []JoinPattern // nil selects DefaultJoinPatterns
	DefaultLimit int           // 0 selects DefaultLimit; negative disables the limit
	Bus          *events.TypedEventBus[ModelEvent]
}

// DefaultModelOptions returns the options used when none are given.
func DefaultModelOptions() *ModelOptions {
	return &ModelOptions{
		JoinPatterns: DefaultJoinPatterns(),
		DefaultLimit: DefaultLimit,
	}
}

// Model is the mutable state of one report-building session: the selected
// tables, columns, joins, filters, sort order and limit. It is meant for a
// single caller; mutations are synchronous and not safe for concurrent use.
// Derived views (AvailableColumns, HasValidQuery) are recomputed on every call.
type Model struct {
	catalog      *catalog.Catalog
	compiler     *Compiler
	logger       *zap.Logger
	patterns     []JoinPattern
	defaultLimit int

	tables  []SelectedTable
	columns []SelectedColumn
	joins   []Join
	filters []Filter
	sort    []SortSpec
	limit   int

	generatedSQL string
	preview      *PreviewResult

	bus           *events.TypedEventBus[ModelEvent]
	subscriptions map[string]*subscription
	subMu         sync.Mutex
}

// NewModel creates an empty model reading table metadata from cat. A nil
// catalog gets a private empty one.
func NewModel(cat *catalog.Catalog, opts *ModelOptions) (*Model, error) {
	if opts == nil {
		opts = DefaultModelOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cat == nil {
		cat = catalog.New(logger)
	}
	patterns := opts.JoinPatterns
	if patterns == nil {
		patterns = DefaultJoinPatterns()
	}
	defaultLimit := opts.DefaultLimit
	switch {
	case defaultLimit == 0:
		defaultLimit = DefaultLimit
	case defaultLimit < 0:
		defaultLimit = 0
	}

	bus := opts.Bus
	if bus == nil {
		var err error
		bus, err = events.NewTypedEventBus[ModelEvent](events.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("could not initialize event bus: %w", err)
		}
	}

	return &Model{
		catalog:       cat,
		compiler:      NewCompiler(logger),
		logger:        logger,
		patterns:      slices.Clone(patterns),
		defaultLimit:  defaultLimit,
		limit:         defaultLimit,
		bus:           bus,
		subscriptions: make(map[string]*subscription),
	}, nil
}

// Catalog returns the catalog the model reads metadata from.
func (m *Model) Catalog() *catalog.Catalog {
	return m.catalog
}

// AddTable adds a catalog table to the selection. It returns false, changing
// nothing, when the same (ID, data source) pair is already selected. Column
// metadata carried by t is recorded in the catalog, and join inference runs
// afterwards.
func (m *Model) AddTable(t catalog.Table) bool {
	if _, ok := m.findTable(t.ID, t.DataSourceID); ok {
		m.logger.Warn("Table already selected", zap.String("table", t.Name), zap.String("dataSource", t.DataSourceID))
		return false
	}

	selected := SelectedTable{
		ID:           t.ID,
		Name:         t.Name,
		Alias:        AllocateAlias(t.Name, m.aliases()),
		DataSourceID: t.DataSourceID,
	}
	m.tables = append(m.tables, selected)

	if t.Columns != nil {
		if t.TableType == "" {
			t.TableType = "table"
		}
		m.catalog.AddTableMetadata(t)
	}

	m.logger.Debug("Added table", zap.String("table", t.Name), zap.String("alias", selected.Alias))
	m.emit(TableAdded, selected)

	m.inferJoins()
	return true
}

// RemoveTable removes the first selected table with the given ID (restricted
// to dataSourceID when non-nil) together with every column, join and filter
// that references it. Returns false when nothing matched.
func (m *Model) RemoveTable(tableID string, dataSourceID *string) bool {
	idx := slices.IndexFunc(m.tables, func(t SelectedTable) bool {
		return t.ID == tableID && (dataSourceID == nil || t.DataSourceID == *dataSourceID)
	})
	if idx < 0 {
		m.logger.Debug("Table not found for removal", zap.String("table", tableID))
		return false
	}
	removed := m.tables[idx]
	ds := removed.DataSourceID

	m.tables = slices.DeleteFunc(m.tables, func(t SelectedTable) bool {
		return t.ID == tableID && t.DataSourceID == ds
	})
	m.columns = slices.DeleteFunc(m.columns, func(c SelectedColumn) bool {
		return c.TableID == tableID && c.DataSourceID == ds
	})
	m.joins = slices.DeleteFunc(m.joins, func(j Join) bool {
		return j.references(tableID, ds)
	})
	m.filters = slices.DeleteFunc(m.filters, func(f Filter) bool {
		return f.TableID == tableID && f.DataSourceID == ds
	})

	if len(m.tables) == 0 {
		m.preview = nil
		m.generatedSQL = ""
	}

	m.logger.Debug("Removed table", zap.String("table", removed.Name))
	m.emit(TableRemoved, removed)
	return true
}

// ToggleColumn selects the column if it is not selected and deselects it
// otherwise. A newly selected column gets the FormatColumnAlias alias and is
// visible. Columns of tables outside the selection are ignored. Returns
// whether the column is selected afterwards.
func (m *Model) ToggleColumn(c ColumnDescriptor) bool {
	if idx := slices.IndexFunc(m.columns, func(sc SelectedColumn) bool { return sc.matches(c) }); idx >= 0 {
		removed := m.columns[idx]
		m.columns = slices.Delete(m.columns, idx, idx+1)
		m.logger.Debug("Removed column", zap.String("column", c.DisplayName))
		m.emit(ColumnToggled, removed)
		return false
	}

	table, ok := m.findTable(c.TableID, c.DataSourceID)
	if !ok {
		m.logger.Warn("Column belongs to a table that is not selected",
			zap.String("table", c.TableID), zap.String("column", c.ColumnName))
		return false
	}
	if c.TableAlias == "" {
		c.TableAlias = table.Alias
	}
	if c.TableName == "" {
		c.TableName = table.Name
	}
	if c.FullName == "" {
		c.FullName = table.Alias + "." + c.ColumnName
	}
	if c.DisplayName == "" {
		c.DisplayName = table.Name + "." + c.ColumnName
	}

	selected := SelectedColumn{
		ColumnDescriptor: c,
		Alias:            FormatColumnAlias(c.ColumnName),
		Visible:          true,
	}
	m.columns = append(m.columns, selected)
	m.logger.Debug("Added column", zap.String("column", c.DisplayName))
	m.emit(ColumnToggled, selected)
	return true
}

// SetColumnAlias changes the output alias of a selected column.
func (m *Model) SetColumnAlias(c ColumnDescriptor, alias string) bool {
	return m.updateColumn(c, func(sc *SelectedColumn) { sc.Alias = alias })
}

// SetColumnVisible shows or hides a selected column without deselecting it.
func (m *Model) SetColumnVisible(c ColumnDescriptor, visible bool) bool {
	return m.updateColumn(c, func(sc *SelectedColumn) { sc.Visible = visible })
}

func (m *Model) updateColumn(c ColumnDescriptor, apply func(*SelectedColumn)) bool {
	idx := slices.IndexFunc(m.columns, func(sc SelectedColumn) bool { return sc.matches(c) })
	if idx < 0 {
		return false
	}
	apply(&m.columns[idx])
	m.emit(ColumnUpdated, m.columns[idx])
	return true
}

// AddFilter appends an empty filter on the first selected table and returns a
// copy of it. It returns nil when no table is selected.
func (m *Model) AddFilter() *Filter {
	if len(m.tables) == 0 {
		m.logger.Warn("No tables selected for filter")
		return nil
	}
	first := m.tables[0]
	f := Filter{
		ID:           uuid.NewString(),
		TableID:      first.ID,
		DataSourceID: first.DataSourceID,
		Operator:     OperatorEq,
		DataType:     "string",
	}
	m.filters = append(m.filters, f)
	m.logger.Debug("Added filter", zap.String("id", f.ID))
	m.emit(FilterAdded, f)
	return &f
}

// UpdateFilter replaces the filter with the same ID. The filter must point at
// a selected table.
func (m *Model) UpdateFilter(f Filter) bool {
	idx := slices.IndexFunc(m.filters, func(existing Filter) bool { return existing.ID == f.ID })
	if idx < 0 {
		return false
	}
	if _, ok := m.findTable(f.TableID, f.DataSourceID); !ok {
		m.logger.Warn("Filter references a table that is not selected",
			zap.String("id", f.ID), zap.String("table", f.TableID))
		return false
	}
	m.filters[idx] = f
	m.emit(FilterUpdated, f)
	return true
}

// RemoveFilter deletes a filter by ID. Unknown IDs are ignored.
func (m *Model) RemoveFilter(id string) bool {
	before := len(m.filters)
	m.filters = slices.DeleteFunc(m.filters, func(f Filter) bool { return f.ID == id })
	if len(m.filters) == before {
		return false
	}
	m.logger.Debug("Removed filter", zap.String("id", id))
	m.emit(FilterRemoved, id)
	return true
}

// AddJoin adds a user-defined join. Both endpoints must be selected; an empty
// data source ID on an endpoint matches the first selected table with that
// ID. Missing ID and join type are filled in.
func (m *Model) AddJoin(j Join) (*Join, error) {
	if strings.TrimSpace(j.Condition) == "" {
		return nil, ErrEmptyJoinCondition
	}
	left, ok := m.findTableLoose(j.LeftTable, j.LeftDataSourceID)
	if !ok {
		return nil, fmt.Errorf("left table %q: %w", j.LeftTable, ErrTableNotSelected)
	}
	right, ok := m.findTableLoose(j.RightTable, j.RightDataSourceID)
	if !ok {
		return nil, fmt.Errorf("right table %q: %w", j.RightTable, ErrTableNotSelected)
	}
	j.LeftDataSourceID = left.DataSourceID
	j.RightDataSourceID = right.DataSourceID
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.JoinType == "" {
		j.JoinType = JoinTypeLeft
	}
	j.JoinType = JoinType(strings.ToUpper(string(j.JoinType)))

	m.joins = append(m.joins, j)
	m.logger.Debug("Added join", zap.String("left", j.LeftTable), zap.String("right", j.RightTable))
	m.emit(JoinAdded, j)
	return &j, nil
}

// SetJoinType changes the type of an existing join.
func (m *Model) SetJoinType(id string, joinType JoinType) bool {
	idx := slices.IndexFunc(m.joins, func(j Join) bool { return j.ID == id })
	if idx < 0 {
		return false
	}
	m.joins[idx].JoinType = JoinType(strings.ToUpper(string(joinType)))
	m.emit(JoinUpdated, m.joins[idx])
	return true
}

// RemoveJoin deletes a join by ID.
func (m *Model) RemoveJoin(id string) bool {
	before := len(m.joins)
	m.joins = slices.DeleteFunc(m.joins, func(j Join) bool { return j.ID == id })
	if len(m.joins) == before {
		return false
	}
	m.emit(JoinRemoved, id)
	return true
}

// InferJoins runs join inference against the current selection and appends
// what it finds. AddTable calls it automatically.
func (m *Model) InferJoins() []Join {
	return m.inferJoins()
}

func (m *Model) inferJoins() []Join {
	added := InferJoins(m.tables, m.joins, m.patterns)
	for _, j := range added {
		m.joins = append(m.joins, j)
		m.logger.Debug("Auto-detected join",
			zap.String("left", j.LeftTable), zap.String("right", j.RightTable), zap.String("condition", j.Condition))
		m.emit(JoinAdded, j)
	}
	return added
}

// AddSort orders by field. Sorting by a field already present changes its
// direction in place. Anything but DESC sorts ascending.
func (m *Model) AddSort(field string, direction SortDirection) {
	direction = SortDirection(strings.ToUpper(string(direction)))
	if direction != SortDirectionDesc {
		direction = SortDirectionAsc
	}
	if idx := slices.IndexFunc(m.sort, func(s SortSpec) bool { return s.Field == field }); idx >= 0 {
		m.sort[idx].Direction = direction
	} else {
		m.sort = append(m.sort, SortSpec{Field: field, Direction: direction})
	}
	m.emit(SortChanged, m.Sort())
}

// RemoveSort drops the ordering on field.
func (m *Model) RemoveSort(field string) bool {
	before := len(m.sort)
	m.sort = slices.DeleteFunc(m.sort, func(s SortSpec) bool { return s.Field == field })
	if len(m.sort) == before {
		return false
	}
	m.emit(SortChanged, m.Sort())
	return true
}

// ClearSort removes all ordering.
func (m *Model) ClearSort() {
	m.sort = nil
	m.emit(SortChanged, m.Sort())
}

// SetLimit sets the row limit. Zero or a negative value removes it.
func (m *Model) SetLimit(n int) {
	if n < 0 {
		n = 0
	}
	m.limit = n
	m.emit(LimitChanged, n)
}

// Limit returns the row limit, 0 meaning none.
func (m *Model) Limit() int {
	return m.limit
}

// GenerateSQL compiles the current selection and remembers the result as the
// last compiled SQL. An empty string means the query is not ready.
func (m *Model) GenerateSQL() string {
	sql := m.compiler.Compile(m)
	m.generatedSQL = sql
	m.emit(SQLGenerated, sql)
	return sql
}

// GeneratedSQL returns the SQL produced by the last GenerateSQL call.
func (m *Model) GeneratedSQL() string {
	return m.generatedSQL
}

// SetPreview stores rows fetched for the current query.
func (m *Model) SetPreview(p *PreviewResult) {
	m.preview = p
}

// Preview returns the stored preview rows, if any.
func (m *Model) Preview() *PreviewResult {
	return m.preview
}

// Reset clears the whole selection and restores the default limit.
func (m *Model) Reset() {
	m.tables = nil
	m.columns = nil
	m.joins = nil
	m.filters = nil
	m.sort = nil
	m.limit = m.defaultLimit
	m.preview = nil
	m.generatedSQL = ""
	m.logger.Debug("Report builder reset")
	m.emit(ModelReset, nil)
}

// AvailableColumns lists the catalog columns of every selected table, in
// table selection order.
func (m *Model) AvailableColumns() []ColumnDescriptor {
	var out []ColumnDescriptor
	for _, t := range m.tables {
		md, ok := m.catalog.TableMetadata(t.DataSourceID, t.ID)
		if !ok {
			continue
		}
		for _, col := range md.Columns {
			out = append(out, ColumnDescriptor{
				TableID:      t.ID,
				TableName:    t.Name,
				TableAlias:   t.Alias,
				DataSourceID: t.DataSourceID,
				ColumnName:   col.Name,
				ColumnType:   col.Type,
				PrimaryKey:   col.PrimaryKey,
				Nullable:     col.Nullable,
				FullName:     t.Alias + "." + col.Name,
				DisplayName:  t.Name + "." + col.Name,
			})
		}
	}
	return out
}

// HasValidQuery reports whether at least one table and one column are
// selected.
func (m *Model) HasValidQuery() bool {
	return len(m.tables) > 0 && len(m.columns) > 0
}

// Tables returns the selected tables in insertion order.
func (m *Model) Tables() []SelectedTable { return slices.Clone(m.tables) }

// Columns returns the selected columns.
func (m *Model) Columns() []SelectedColumn { return slices.Clone(m.columns) }

// Joins returns the current joins.
func (m *Model) Joins() []Join { return slices.Clone(m.joins) }

// Filters returns all filters, complete or not.
func (m *Model) Filters() []Filter { return slices.Clone(m.filters) }

// Sort returns the ordering specs.
func (m *Model) Sort() []SortSpec { return slices.Clone(m.sort) }

// SelectedDataSources returns the catalog data sources that own at least one
// selected table, in catalog order.
func (m *Model) SelectedDataSources() []catalog.DataSource {
	ids := make(map[string]struct{}, len(m.tables))
	for _, t := range m.tables {
		ids[t.DataSourceID] = struct{}{}
	}
	var out []catalog.DataSource
	for _, ds := range m.catalog.DataSources() {
		if _, ok := ids[ds.ID]; ok {
			out = append(out, ds)
		}
	}
	return out
}

// IsTableSelected reports whether a table is selected; a nil dataSourceID
// matches any source.
func (m *Model) IsTableSelected(tableID string, dataSourceID *string) bool {
	return slices.ContainsFunc(m.tables, func(t SelectedTable) bool {
		return t.ID == tableID && (dataSourceID == nil || t.DataSourceID == *dataSourceID)
	})
}

// SelectedTableColumns returns the selected columns of one table.
func (m *Model) SelectedTableColumns(tableID string, dataSourceID *string) []SelectedColumn {
	var out []SelectedColumn
	for _, c := range m.columns {
		if c.TableID == tableID && (dataSourceID == nil || c.DataSourceID == *dataSourceID) {
			out = append(out, c)
		}
	}
	return out
}

// TableData looks up an available catalog table.
func (m *Model) TableData(tableID string, dataSourceID *string) (catalog.Table, bool) {
	ds := ""
	if dataSourceID != nil {
		ds = *dataSourceID
	}
	return m.catalog.Table(tableID, ds)
}

// Subscribe registers cb for events of the given type and returns an ID for
// Unsubscribe.
func (m *Model) Subscribe(event ModelEventType, cb EventCallbackFunction) string {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	unsubscribe := m.bus.Subscribe(string(event), func(ctx context.Context, e ModelEvent) error {
		return cb(ctx, e)
	})
	id := uuid.NewString()
	m.subscriptions[id] = &subscription{event: event, unsubscribe: unsubscribe}
	return id
}

// Unsubscribe removes a subscription registered with Subscribe.
func (m *Model) Unsubscribe(id string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if sub := m.subscriptions[id]; sub != nil {
		sub.unsubscribe()
		delete(m.subscriptions, id)
	}
}

func (m *Model) emit(eventType ModelEventType, payload any) {
	if m.bus != nil {
		m.bus.Emit(string(eventType), createEvent(eventType, payload))
	}
}

func (m *Model) aliases() map[string]struct{} {
	set := make(map[string]struct{}, len(m.tables))
	for _, t := range m.tables {
		set[t.Alias] = struct{}{}
	}
	return set
}

func (m *Model) findTable(tableID, dataSourceID string) (SelectedTable, bool) {
	for _, t := range m.tables {
		if t.ID == tableID && t.DataSourceID == dataSourceID {
			return t, true
		}
	}
	return SelectedTable{}, false
}

// findTableLoose is findTable with an empty data source matching any source.
func (m *Model) findTableLoose(tableID, dataSourceID string) (SelectedTable, bool) {
	if dataSourceID != "" {
		return m.findTable(tableID, dataSourceID)
	}
	for _, t := range m.tables {
		if t.ID == tableID {
			return t, true
		}
	}
	return SelectedTable{}, false
}
