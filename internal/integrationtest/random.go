// Package integrationtest generates sample snapshots and verifies their anonymized copies.
package integrationtest

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopmonkeyus/anonymizer/internal"
)

// Tables of the sample snapshot in dependency order.
const (
	CustomerTable  = "customer"
	VehicleTable   = "vehicle"
	WorkOrderTable = "work_order"
	PaymentTable   = "payment"
)

// Relationships are the foreign keys of the sample snapshot.
var Relationships = []internal.ForeignKeyRelationship{
	{SourceTable: CustomerTable, SourceColumn: "referred_by_id", TargetTable: CustomerTable, TargetColumn: "id", Type: internal.ManyToOne},
	{SourceTable: VehicleTable, SourceColumn: "customer_id", TargetTable: CustomerTable, TargetColumn: "id", Type: internal.ManyToOne},
	{SourceTable: WorkOrderTable, SourceColumn: "customer_id", TargetTable: CustomerTable, TargetColumn: "id", Type: internal.ManyToOne},
	{SourceTable: WorkOrderTable, SourceColumn: "vehicle_id", TargetTable: VehicleTable, TargetColumn: "id", Type: internal.ManyToOne},
	{SourceTable: PaymentTable, SourceColumn: "work_order_id", TargetTable: WorkOrderTable, TargetColumn: "id", Type: internal.ManyToOne},
}

// PIIColumns are the columns of the sample snapshot whose original values must never survive anonymization.
var PIIColumns = []internal.ColumnKey{
	{Table: CustomerTable, Column: "first_name"},
	{Table: CustomerTable, Column: "last_name"},
	{Table: CustomerTable, Column: "email"},
	{Table: CustomerTable, Column: "phone"},
	{Table: CustomerTable, Column: "address1"},
	{Table: VehicleTable, Column: "vin"},
}

var (
	countries = []string{"US", "CA", "MX"}
	makes     = []string{"Ford", "Toyota", "Honda", "Chevrolet", "Subaru"}
	statuses  = []string{"Estimate", "Invoice", "Paid"}
)

type generator struct {
	r   *rand.Rand
	now time.Time
}

func (g *generator) id() string {
	return uuid.Must(uuid.NewRandomFromReader(g.r)).String()
}

func (g *generator) pick(vals []string) string {
	return vals[g.r.Intn(len(vals))]
}

func (g *generator) date() string {
	return g.now.Add(-time.Duration(g.r.Intn(365*24*60*60)) * time.Second).Format(time.RFC3339)
}

func (g *generator) customer(i int, customers []internal.Row) internal.Row {
	var referredBy any
	if len(customers) > 0 && g.r.Float32() > 0.7 {
		referredBy = customers[g.r.Intn(len(customers))]["id"]
	}
	return internal.Row{
		"id":             g.id(),
		"first_name":     fmt.Sprintf("FirstName%d", i),
		"last_name":      fmt.Sprintf("LastName%d", i),
		"email":          fmt.Sprintf("user%d@shop%d.test", i, g.r.Intn(100)),
		"phone":          fmt.Sprintf("555-%03d-%04d", g.r.Intn(1000), g.r.Intn(10000)),
		"address1":       fmt.Sprintf("%d Random St", g.r.Intn(9999)+1),
		"city":           fmt.Sprintf("City%d", g.r.Intn(1000)),
		"country":        g.pick(countries),
		"balance":        float64(g.r.Intn(100_000)) / 100,
		"tax_exempt":     g.r.Float32() > 0.8,
		"referred_by_id": referredBy,
		"created_date":   g.date(),
	}
}

func (g *generator) vehicle(customerID any) internal.Row {
	return internal.Row{
		"id":          g.id(),
		"customer_id": customerID,
		"vin":         fmt.Sprintf("1HGCM%012d", g.r.Int63n(1_000_000_000_000)),
		"make":        g.pick(makes),
		"year":        int64(1995 + g.r.Intn(30)),
	}
}

// GenerateSnapshot returns a deterministic sample shop snapshot with the given number of customers. Work orders
// use sequential integer keys, the other tables use uuid keys.
func GenerateSnapshot(seed int64, customers int) []*internal.RelationalTable {
	g := &generator{r: rand.New(rand.NewSource(seed)), now: time.Date(2024, 7, 24, 20, 0, 0, 0, time.UTC)}
	tables := map[string]*internal.RelationalTable{
		CustomerTable:  {Name: CustomerTable},
		VehicleTable:   {Name: VehicleTable},
		WorkOrderTable: {Name: WorkOrderTable},
		PaymentTable:   {Name: PaymentTable},
	}
	for _, rel := range Relationships {
		tables[rel.SourceTable].Relationships = append(tables[rel.SourceTable].Relationships, rel)
	}
	var orderID int64
	for i := 0; i < customers; i++ {
		customer := g.customer(i, tables[CustomerTable].Rows)
		tables[CustomerTable].Rows = append(tables[CustomerTable].Rows, customer)
		vehicles := 1 + g.r.Intn(2)
		for v := 0; v < vehicles; v++ {
			vehicle := g.vehicle(customer["id"])
			tables[VehicleTable].Rows = append(tables[VehicleTable].Rows, vehicle)
			for o := g.r.Intn(3); o > 0; o-- {
				orderID++
				total := float64(g.r.Intn(500_000)) / 100
				tables[WorkOrderTable].Rows = append(tables[WorkOrderTable].Rows, internal.Row{
					"id":           orderID,
					"customer_id":  customer["id"],
					"vehicle_id":   vehicle["id"],
					"status":       g.pick(statuses),
					"total_cost":   total,
					"created_date": g.date(),
				})
				for p := g.r.Intn(3); p > 0; p-- {
					tables[PaymentTable].Rows = append(tables[PaymentTable].Rows, internal.Row{
						"id":            g.id(),
						"work_order_id": orderID,
						"amount":        total / 2,
						"card_last4":    fmt.Sprintf("%04d", g.r.Intn(10000)),
					})
				}
			}
		}
	}
	return []*internal.RelationalTable{tables[CustomerTable], tables[VehicleTable], tables[WorkOrderTable], tables[PaymentTable]}
}
