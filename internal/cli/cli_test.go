package cli

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/storage"
)

// quietEnv keeps the host environment from enabling AMQP or noisy logs.
func quietEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AMQP_URL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func runSaldo(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func seedDB(t *testing.T, dbPath string, inputs ...core.ExpenseInput) {
	t.Helper()
	repo, err := storage.Open(context.Background(), dbPath)
	require.NoError(t, err)
	defer repo.Close()
	for _, in := range inputs {
		_, err := repo.CreateExpense(context.Background(), in)
		require.NoError(t, err)
	}
}

func TestSalarySetAndGet(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")
	seedDB(t, db, core.NewExpenseInput("2024-01-15", "Food", "", 200))

	out, err := runSaldo(t, context.Background(), "--db", db, "salary", "set", "4200,50")
	require.NoError(t, err)
	assert.Equal(t, "Salary updated: 4200.5\n", out)

	out, err = runSaldo(t, context.Background(), "--db", db, "salary", "get")
	require.NoError(t, err)
	assert.Equal(t, "salary: 4200.5\ntotal_expenses: 200.0\nremaining: 4000.5\n", out)
}

func TestSalarySetRejectsBadAmount(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")

	_, err := runSaldo(t, context.Background(), "--db", db, "salary", "set", "1.2.3")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = runSaldo(t, context.Background(), "--db", db, "salary", "set")
	assert.Error(t, err)
}

func TestExportToStdout(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "expenses.db")
	seedDB(t, db,
		core.NewExpenseInput("2024-01-15", "Food", "lunch", 12.5),
		core.NewExpenseInput("2024-02-01", "Rent", "", 800),
	)

	out, err := runSaldo(t, context.Background(), "--db", db, "export")
	require.NoError(t, err)
	assert.Equal(t, "ID,Date,Category,Description,Amount\r\n"+
		"2,2024-02-01,Rent,,800.0\r\n"+
		"1,2024-01-15,Food,lunch,12.5\r\n", out)
}

func TestExportToFile(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "expenses.db")
	dest := filepath.Join(dir, "out.csv")

	out, err := runSaldo(t, context.Background(), "--db", db, "export", "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ID,Date,Category,Description,Amount\r\n", string(data))
}

func TestExportToFileFailureLeavesNothing(t *testing.T) {
	quietEnv(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "expenses.db")
	seedDB(t, db, core.NewExpenseInput("2024-01-15", "Food", "lunch", 12.5))

	// A non-empty directory at the destination makes the final rename fail.
	dest := filepath.Join(dir, "out.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "keep"), 0o755))

	_, err := runSaldo(t, context.Background(), "--db", db, "export", "--out", dest)
	require.Error(t, err)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".saldo-export-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMigrate(t *testing.T) {
	quietEnv(t)
	db := filepath.Join(t.TempDir(), "nested", "expenses.db")

	out, err := runSaldo(t, context.Background(), "--db", db, "migrate")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%s at schema version 1\n", db), out)

	_, err = os.Stat(db)
	assert.NoError(t, err)
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	quietEnv(t)
	t.Setenv("LOG_FORMAT", "xml")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "expenses.db"), "migrate"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
}

// serveUntilHealthy runs saldo with args, waits for /healthz on port, then
// cancels and expects a clean shutdown.
func serveUntilHealthy(t *testing.T, port string, args ...string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := runSaldo(t, ctx, args...)
		done <- err
	}()

	url := "http://127.0.0.1:" + port + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	quietEnv(t)
	port := freePort(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", port)

	serveUntilHealthy(t, port, "--db", filepath.Join(t.TempDir(), "expenses.db"), "serve")
}

func TestBareCommandServes(t *testing.T) {
	quietEnv(t)
	port := freePort(t)
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", port)

	serveUntilHealthy(t, port, "--db", filepath.Join(t.TempDir(), "expenses.db"))
}

func TestUnknownSubcommandFails(t *testing.T) {
	quietEnv(t)

	_, err := runSaldo(t, context.Background(), "--db", filepath.Join(t.TempDir(), "expenses.db"), "nope")
	assert.Error(t, err)
}
