// Package endpoint implements the SPARQL 1.1 Protocol HTTP adapter, per
// spec.md §4.9. It is a thin net/http.Handler: parse the request into
// (query, accept_formats), compile and run it through a prepared
// statement, then either serialize the result cursor or synthesize a
// service description when no query parameter is given. The shape
// mirrors the teacher's cmd/psqldef/psqldef.go option-parse-then-dispatch
// split, with HTTP request parsing standing in for flag parsing.
//
// The endpoint is read-only: it only ever compiles and runs SELECT/ASK/
// CONSTRUCT/DESCRIBE, never INSERT/DELETE — per spec.md §4.9 there is no
// update surface here.
package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/tinygraph/tinygraph/internal/errs"
	"github.com/tinygraph/tinygraph/internal/nsmap"
	"github.com/tinygraph/tinygraph/internal/prepared"
	"github.com/tinygraph/tinygraph/internal/serialize"
	"github.com/tinygraph/tinygraph/internal/store"
	"github.com/tinygraph/tinygraph/internal/update"
	"github.com/tinygraph/tinygraph/util"
)

// formatDescriptor pairs one serialize.Format with the MIME types and
// format IRI spec.md §6's table assigns it. Position in formatDescriptors
// is the index TRACKER_TEST_PREFERRED_CURSOR_FORMAT addresses.
type formatDescriptor struct {
	format   serialize.Format
	mime     string
	formatID string
}

var formatDescriptors = []formatDescriptor{
	{serialize.FormatSPARQLJSON, "application/sparql-results+json", "http://www.w3.org/ns/formats/SPARQL_Results_JSON"},
	{serialize.FormatSPARQLXML, "application/sparql-results+xml", "http://www.w3.org/ns/formats/SPARQL_Results_XML"},
	{serialize.FormatTurtle, "text/turtle", "http://www.w3.org/ns/formats/Turtle"},
	{serialize.FormatTriG, "application/trig", "http://www.w3.org/ns/formats/TriG"},
	{serialize.FormatJSONLD, "application/ld+json", "http://www.w3.org/ns/formats/JSON-LD"},
}

// preferredFormatEnv is read once per request so tests can force a
// format without touching Accept headers, exactly per spec.md §4.9/§6.
const preferredFormatEnv = "TRACKER_TEST_PREFERRED_CURSOR_FORMAT"

// Endpoint serves the SPARQL protocol over one store.Store.
type Endpoint struct {
	st  store.Store
	eng *update.Engine
	ns  *nsmap.Map
}

// New builds an Endpoint answering queries against st, using ns to
// resolve prefixed names in incoming query text.
func New(st store.Store, eng *update.Engine, ns *nsmap.Map) *Endpoint {
	return &Endpoint{st: st, eng: eng, ns: ns}
}

func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	queryText := r.FormValue("query")
	fd, ok := negotiateFormat(r)
	if !ok {
		http.Error(w, "no mutually supported result format", http.StatusBadRequest)
		return
	}

	if queryText == "" {
		e.serveServiceDescription(w, fd)
		return
	}
	e.serveQuery(r.Context(), w, queryText, fd)
}

func (e *Endpoint) serveQuery(ctx context.Context, w http.ResponseWriter, queryText string, fd formatDescriptor) {
	stmt, err := prepared.New(e.st, e.eng, e.ns, queryText)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	body, err := stmt.Serialize(ctx, fd.format)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", fd.mime)
	if _, err := io.Copy(w, body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeQueryError(w http.ResponseWriter, err error) {
	var parseErr *errs.ParseError
	if errors.As(err, &parseErr) || errors.Is(err, errs.ErrWrongKind) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// serviceDescription is the JSON synthesized for a query-less request,
// per spec.md §4.9/§6: the features this endpoint supports and the
// formats it accepts and produces. Prefixes are walked through
// util.CanonicalMapIter so the output is stable across requests instead
// of following Go's randomized map order.
type serviceDescription struct {
	Features []string          `json:"features"`
	Formats  []string          `json:"formats"`
	Prefixes map[string]string `json:"prefixes"`
}

func (e *Endpoint) serveServiceDescription(w http.ResponseWriter, fd formatDescriptor) {
	prefixes := make(map[string]string)
	for prefix, iri := range util.CanonicalMapIter(e.ns.Prefixes()) {
		prefixes[prefix] = iri
	}

	desc := serviceDescription{
		Features: []string{"EmptyGraphs", "BasicFederatedQuery", "UnionDefaultGraph"},
		Prefixes: prefixes,
	}
	for _, d := range formatDescriptors {
		desc.Formats = append(desc.Formats, d.formatID)
	}

	w.Header().Set("Content-Type", fd.mime)
	if fd.format != serialize.FormatSPARQLJSON {
		w.Header().Set("Content-Type", "application/json")
	}
	if err := json.NewEncoder(w).Encode(desc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// negotiateFormat picks the first mutually supported format, honoring
// TRACKER_TEST_PREFERRED_CURSOR_FORMAT when its index names a valid,
// mutually supported format, exactly per spec.md §4.9.
func negotiateFormat(r *http.Request) (formatDescriptor, bool) {
	if q := r.FormValue("format"); q != "" {
		if fd, ok := formatByMIME(q); ok {
			return fd, true
		}
	}

	accept := r.Header.Get("Accept")
	candidates := acceptedMIMEs(accept)

	if idxStr, ok := os.LookupEnv(preferredFormatEnv); ok {
		idx, err := strconv.Atoi(idxStr)
		if err == nil && idx >= 0 && idx < len(formatDescriptors) {
			fd := formatDescriptors[idx]
			if len(candidates) == 0 || mimeAccepted(candidates, fd.mime) {
				return fd, true
			}
		}
	}

	if len(candidates) == 0 {
		return formatDescriptors[0], true
	}
	for _, c := range candidates {
		if fd, ok := formatByMIME(c); ok {
			return fd, true
		}
	}
	return formatDescriptor{}, false
}

func acceptedMIMEs(accept string) []string {
	if accept == "" || accept == "*/*" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(accept, ",") {
		mime := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mime != "" && mime != "*/*" {
			out = append(out, mime)
		}
	}
	return out
}

func mimeAccepted(candidates []string, mime string) bool {
	for _, c := range candidates {
		if c == mime {
			return true
		}
	}
	return false
}

func formatByMIME(mime string) (formatDescriptor, bool) {
	for _, d := range formatDescriptors {
		if d.mime == mime {
			return d, true
		}
	}
	return formatDescriptor{}, false
}
