package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/asaidimu/go-reportql/core/catalog"
	"github.com/asaidimu/go-reportql/core/query"
	"github.com/asaidimu/go-reportql/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	dbFileName = "shop.db"
	shopSchema = `
		CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, city TEXT);
		CREATE TABLE orders (
			id INTEGER PRIMARY KEY,
			customer_id INTEGER NOT NULL REFERENCES customers(id),
			status VARCHAR(20) NOT NULL,
			total DECIMAL(10,2),
			created_at DATETIME
		);
		INSERT INTO customers VALUES (1, 'Ada Lovelace', 'London'), (2, 'Grace Hopper', 'New York');
		INSERT INTO orders VALUES
			(1, 1, 'shipped', 120.50, '2024-01-10 09:00:00'),
			(2, 2, 'pending', 75.00, '2024-02-11 10:30:00'),
			(3, 2, 'shipped', 310.25, '2024-03-12 14:15:00');`
)

func main() {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := os.Remove(dbFileName); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing database file %s: %v", dbFileName, err)
	}
	db, err := sql.Open(sqlite.DriverName, dbFileName)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if _, err := db.Exec(shopSchema); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	db.Close()

	ctx := context.Background()

	// Discover the catalog.
	in := sqlite.NewIntrospector([]sqlite.Source{{ID: "shop", Name: "Shop", Path: dbFileName}}, logger)
	defer in.Close()
	cat := catalog.New(logger)
	if err := catalog.NewLoader(in, cat, logger).LoadAll(ctx); err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	fmt.Printf("Discovered %d tables\n", len(cat.Tables()))

	// Build a report: orders with their customer, shipped only, largest first.
	model, err := query.NewModel(cat, &query.ModelOptions{Logger: logger})
	if err != nil {
		log.Fatalf("Failed to create model: %v", err)
	}
	model.Subscribe(query.JoinAdded, func(ctx context.Context, e query.ModelEvent) error {
		if j, ok := e.Payload.(query.Join); ok {
			logger.Info("Join added", zap.String("condition", j.Condition))
		}
		return nil
	})

	orders, _ := cat.Table("orders", "shop")
	customers, _ := cat.Table("customers", "shop")
	model.AddTable(orders)
	model.AddTable(customers)

	for _, c := range model.AvailableColumns() {
		switch c.DisplayName {
		case "orders.id", "orders.total", "customers.name":
			model.ToggleColumn(c)
		}
	}

	filter := model.AddFilter()
	filter.Column = "status"
	filter.Value = "shipped"
	model.UpdateFilter(*filter)
	model.AddSort("orders.total", query.SortDirectionDesc)
	model.SetLimit(10)

	fmt.Println("\nGenerated SQL:")
	fmt.Println(model.GenerateSQL())

	cfg, err := query.Serialize(model).Document()
	if err != nil {
		log.Fatalf("Failed to serialize query config: %v", err)
	}
	out, _ := json.MarshalIndent(cfg, "", "  ")
	fmt.Println("\nQuery config:")
	fmt.Println(string(out))

	shopDB, err := in.DB("shop")
	if err != nil {
		log.Fatalf("Failed to get data source: %v", err)
	}
	preview, err := sqlite.NewRunner(shopDB, logger).Preview(ctx, model)
	if err != nil {
		log.Fatalf("Failed to preview: %v", err)
	}
	fmt.Println("\nPreview:")
	for _, row := range preview.Rows {
		fmt.Printf("  %v\n", row)
	}
}
