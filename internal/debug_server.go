package internal

import (
	"ephemeral-chat/infrastructure/storage"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultInspectLimit = 200

// NewDebugServer exposes the prometheus metrics, a health check and a
// read-only view of the stored keys.
//
//	/metrics                      prometheus exposition
//	/healthz                      200 while the store is open
//	/inspect?prefix=msg:&limit=50 plain text table of decoded records
func NewDebugServer(log *slog.Logger, db *badger.DB, gatherer prometheus.Gatherer, port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if db.IsClosed() {
			http.Error(w, "store closed", http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "msg:"
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = defaultInspectLimit
		}
		rows, err := storage.Inspect(db, prefix, limit)
		if err != nil {
			log.Error("Inspection failed", "prefix", prefix, "error", err)
			http.Error(w, "inspection failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		RenderInspectTable(w, rows)
	})

	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
}

// RenderInspectTable writes rows as a borderless, tab padded table.
func RenderInspectTable(w io.Writer, rows []storage.InspectRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(storage.InspectHeader)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	for _, row := range rows {
		table.Append(row.Columns())
	}
	table.Render()
}
