package pg

import (
	"testing"
	"testing/fstest"

	migrations "github.com/aulanet/student-notifier/migrations/postgres"
)

func TestParseMigrations_SortedAndFiltered(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_indexes.up.sql":    {Data: []byte("CREATE INDEX two;")},
		"sql/0001_ledger.up.sql":     {Data: []byte("CREATE TABLE one;")},
		"sql/0010_tokens.up.sql":     {Data: []byte("CREATE TABLE ten;")},
		"sql/README.md":              {Data: []byte("no soy una migración")},
		"sql/notas_sin_version.sql":  {Data: []byte("tampoco")},
	}

	migs, err := parseMigrations(fsys, "sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) != 3 {
		t.Fatalf("esperaba 3 migraciones, got %d", len(migs))
	}
	wantVersions := []int{1, 2, 10}
	for i, m := range migs {
		if m.Version != wantVersions[i] {
			t.Fatalf("orden incorrecto en posición %d: versión %d (esperaba %d)", i, m.Version, wantVersions[i])
		}
	}
	if migs[0].Name != "ledger.up" || migs[0].SQL != "CREATE TABLE one;" {
		t.Fatalf("migración mal parseada: %+v", migs[0])
	}
}

func TestParseMigrations_EmbeddedSchema(t *testing.T) {
	// El FS embebido que consume el arranque del binario tiene que parsear
	// siempre y contener el schema del ledger.
	migs, err := parseMigrations(migrations.FS, migrations.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(migs) == 0 {
		t.Fatal("el FS embebido no contiene migraciones")
	}
	if migs[0].Version != 1 {
		t.Fatalf("la primera migración debe ser la versión 1, got %d", migs[0].Version)
	}
}
