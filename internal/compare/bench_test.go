package compare

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/JonMunkholm/tabdiff/internal/table"
)

func fakeLedger(b *testing.B, faker *gofakeit.Faker, rows int) *table.Table {
	b.Helper()
	ids := make([]table.Cell, rows)
	amounts := make([]table.Cell, rows)
	names := make([]table.Cell, rows)
	for i := 0; i < rows; i++ {
		ids[i] = table.Text(faker.UUID())
		amounts[i] = table.Text(faker.Numerify("####.##"))
		names[i] = table.Text(faker.Company())
	}
	tbl, err := table.FromColumns(
		&table.Column{Name: "id", Cells: ids},
		&table.Column{Name: "amount", Cells: amounts},
		&table.Column{Name: "name", Cells: names},
	)
	if err != nil {
		b.Fatal(err)
	}
	return tbl
}

func BenchmarkCompare(b *testing.B) {
	faker := gofakeit.New(1)
	t1 := fakeLedger(b, faker, 10000)
	t2 := fakeLedger(b, faker, 10000)
	fields := []FieldPair{
		{Label: "id", Column1: "id", Column2: "id"},
		{Label: "amount", Column1: "amount", Column2: "amount"},
		{Label: "name", Column1: "name", Column2: "name"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compare(t1, t2, fields)
	}
}
