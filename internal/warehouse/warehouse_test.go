package warehouse

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"energylabel-log-server/internal/schema"
)

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	cfg       Config
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("energylabel"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return &testMySQLContainer{
		container: container,
		cfg: Config{
			User:        "root",
			Password:    "testpass",
			Database:    "energylabel",
			Host:        host,
			Port:        port.Int(),
			ConnLimit:   10,
			ColumnStore: false, // the mysql:8.0 test image has no ColumnStore engine
		},
	}
}

func fixtureA() *schema.Record {
	msg := "IT'S A TEST :)"
	return &schema.Record{
		Score:            10,
		StatusCode:       1,
		ErrorMessage:     &msg,
		PluginVersion:    "t1.23.415",
		PluginName:       "DBTest",
		ExtensionVersion: "0.0.1",
		BrowserVersion:   "t1.234",
		BrowserName:      "TestBrowser",
		Path:             "/db/test",
		URL:              "https://testdb.aau.dk",
	}
}

func rowCount(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM `"+table+"`").Scan(&n))
	return n
}

func TestWarehouseEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	w, err := New(ctx, tc.cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Init(ctx))

	db, err := sql.Open("mysql", dsnFor(tc.cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// A. Empty DB, insert.
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{fixtureA()}))
	require.Equal(t, 1, rowCount(t, db, "Fact"))
	require.Equal(t, 1, rowCount(t, db, "Plugin"))
	require.Equal(t, 1, rowCount(t, db, "PluginName"))
	require.Equal(t, 1, rowCount(t, db, "Browser"))
	require.Equal(t, 1, rowCount(t, db, "BrowserName"))
	require.Equal(t, 1, rowCount(t, db, "Url"))
	require.Equal(t, 1, rowCount(t, db, "Domain"))
	require.Equal(t, 1, rowCount(t, db, "ErrorMessage"))

	// B. Immediately insert the same record again.
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{fixtureA()}))
	require.Equal(t, 2, rowCount(t, db, "Fact"))
	require.Equal(t, 1, rowCount(t, db, "Plugin"))
	require.Equal(t, 1, rowCount(t, db, "ErrorMessage"))

	// C. Same as A without errorMessage.
	recC := fixtureA()
	recC.ErrorMessage = nil
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{recC}))
	require.Equal(t, 3, rowCount(t, db, "Fact"))
	require.Equal(t, 1, rowCount(t, db, "ErrorMessage"))

	// Fact has no surrogate key to order by; A and B carry an
	// error_message_id, so C must be the only row without one.
	var nullErrMsgRows int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM `Fact` WHERE error_message_id IS NULL",
	).Scan(&nullErrMsgRows))
	require.Equal(t, 1, nullErrMsgRows)

	// D. Same as A but a different pluginName.
	recD := fixtureA()
	recD.PluginName = "Other"
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{recD}))
	require.Equal(t, 4, rowCount(t, db, "Fact"))
	require.Equal(t, 2, rowCount(t, db, "PluginName"))
	require.Equal(t, 2, rowCount(t, db, "Plugin"))
	require.Equal(t, 1, rowCount(t, db, "Browser"))
	require.Equal(t, 1, rowCount(t, db, "Url"))

	// E. A single quote in a text field round-trips without a syntax error.
	recE := fixtureA()
	recE.PluginName = "O'Brien"
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{recE}))
	var storedName string
	require.NoError(t, db.QueryRow(
		"SELECT name FROM `PluginName` WHERE name = ?", "O'Brien",
	).Scan(&storedName))
	require.Equal(t, "O'Brien", storedName)
}

func TestWarehouseBootstrapsEmptyDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	// New must succeed against a database with none of the dimension
	// tables created yet — that's the only state --mariadb-init ever
	// runs against.
	w, err := New(ctx, tc.cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Init(ctx))
	require.NoError(t, w.InsertRuns(ctx, []*schema.Record{fixtureA()}))
}

func TestWarehouseDDLRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	w, err := New(ctx, tc.cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Init(ctx))
	require.NoError(t, w.DropTables(ctx))
	require.NoError(t, w.Init(ctx))
}

func TestWarehouseRestartPreservesDimensions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	w, err := New(ctx, tc.cfg)
	require.NoError(t, err)
	require.NoError(t, w.Init(ctx))

	records := make([]*schema.Record, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, fixtureA())
	}
	require.NoError(t, w.InsertRuns(ctx, records))
	require.NoError(t, w.Close())

	// F. Restart: a fresh Warehouse must seed next_id from MAX(child_key)
	// and recognize row 1's content as already present.
	w2, err := New(ctx, tc.cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w2.Close() })

	require.NoError(t, w2.InsertRuns(ctx, []*schema.Record{fixtureA()}))

	db, err := sql.Open("mysql", dsnFor(tc.cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.Equal(t, 6, rowCount(t, db, "Fact"))
	require.Equal(t, 1, rowCount(t, db, "Plugin"))
}

func dsnFor(cfg Config) string {
	return cfg.User + ":" + cfg.Password + "@tcp(" + cfg.Host + ":" + strconv.Itoa(cfg.Port) + ")/" + cfg.Database + "?parseTime=true"
}
