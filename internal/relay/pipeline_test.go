package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/extrato-relay/internal/delivery"
	"github.com/aristath/extrato-relay/internal/events"
	"github.com/aristath/extrato-relay/internal/identifier"
	"github.com/aristath/extrato-relay/internal/source"
	"github.com/aristath/extrato-relay/internal/statement"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pad(s string, width int) string {
	if n := len(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s[:width]
}

func extractFile() string {
	tx := func(id, date, amount, typ, desc string) string {
		return pad(id, 142) + date + amount + typ + "0000000" + pad(desc, 58) + "000"
	}
	return strings.Join([]string{
		pad("34100000", 240),
		pad("34100001", 240),
		tx("00000000000000001", "25122024", "000000000000012345", "D", "PAGAMENTO BOLETO"),
		tx("00000000000000002", "26122024", "000000000000100000", "C", "PIX RECEBIDO"),
		pad("34100013", 142) + "24122024" + "000000000000987655" + "C",
		pad("34199999", 240),
		"",
	}, "\n")
}

type ingestServer struct {
	*httptest.Server
	mu       sync.Mutex
	payloads []delivery.Payload
}

func newIngestServer(t *testing.T, status int) *ingestServer {
	s := &ingestServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ext-salva-movimentacoes-externas", r.URL.Path)
		var p delivery.Payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		s.mu.Lock()
		s.payloads = append(s.payloads, p)
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status < 300 {
			_, _ = w.Write([]byte(`{"ok":true}`))
		} else {
			_, _ = w.Write([]byte(`{"ok":false}`))
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func TestPipeline_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	name := "ext_341_0001_12345_261224.ret"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(extractFile()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ext_341_0001_12345_011124.ret"), []byte(extractFile()), 0o644))

	first := newIngestServer(t, http.StatusOK)
	second := newIngestServer(t, http.StatusInternalServerError)

	log := zerolog.Nop()
	lister := source.NewLister(source.Config{Dir: dir, Marker: "ext_", LookbackDays: 1}, log)
	parser := statement.New(statement.Options{
		Strategy: identifier.SimpleStrategy{},
		Now:      func() time.Time { return fixedNow },
	}, log)
	dispatcher := delivery.NewDispatcher(delivery.DispatcherConfig{
		Destinations: []string{first.URL, second.URL + "/"},
	}, delivery.NewClient("", 0, log), nil, log)
	manager := events.NewManager(log)

	r := newTestRunner(lister, parser, dispatcher, manager, 2)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.FilesListed)
	assert.Equal(t, 1, summary.FilesParsed)
	assert.Equal(t, 2, summary.Transactions)
	assert.Equal(t, 1, summary.Batches)
	assert.Equal(t, 2, summary.Result.Attempts())

	require.Len(t, summary.Result.Successes, 1)
	assert.Equal(t, first.URL, summary.Result.Successes[0].URL)
	assert.JSONEq(t, `{"ok":true}`, string(summary.Result.Successes[0].Response))

	require.Len(t, summary.Result.Failures, 1)
	assert.Equal(t, second.URL+"/", summary.Result.Failures[0].URL)
	assert.JSONEq(t, `{"ok":false}`, string(summary.Result.Failures[0].Response))

	for _, srv := range []*ingestServer{first, second} {
		require.Len(t, srv.payloads, 1)
		require.Len(t, srv.payloads[0].Statements, 1)
		stmt := srv.payloads[0].Statements[0]
		assert.Equal(t, name, stmt.Filename)
		assert.Equal(t, "26/12/2024 13:04:05 UTC", stmt.ReadAt)
		assert.Equal(t, "341", stmt.BankCode)
		assert.Equal(t, "0001", stmt.Branch)
		assert.Equal(t, "12345", stmt.Account)

		require.Len(t, stmt.Transactions, 2)
		assert.Equal(t, "00000000000000001", stmt.Transactions[0].Identifier)
		assert.Equal(t, json.Number("123.45"), stmt.Transactions[0].Amount)
		assert.Equal(t, "D", stmt.Transactions[0].Type)
		assert.Equal(t, json.Number("1000"), stmt.Transactions[1].Amount)

		require.NotNil(t, stmt.ClosingBalance)
		assert.Equal(t, json.Number("9876.55"), *stmt.ClosingBalance)
		assert.Equal(t, "24/12/2024", stmt.OpeningBalanceDate)
	}

	recent := manager.Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, events.RunCompleted, recent[0].Type)
}
