package lsp

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"
)

const testURI = lsp.DocumentURI("file:///test.sh")

type client struct {
	conn        *jsonrpc2.Conn
	diagnostics chan lsp.PublishDiagnosticsParams
}

// Connects a client to a new server over an in-memory pipe.
func setup(t *testing.T) *client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serverSide, clientSide := net.Pipe()
	serverConn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(serverSide, jsonrpc2.VSCodeObjectCodec{}),
		handler(newServer(false)))
	c := &client{diagnostics: make(chan lsp.PublishDiagnosticsParams, 10)}
	c.conn = jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == "textDocument/publishDiagnostics" && req.Params != nil {
				var params lsp.PublishDiagnosticsParams
				if err := json.Unmarshal(*req.Params, &params); err == nil {
					c.diagnostics <- params
				}
			}
			return nil, nil
		}))
	t.Cleanup(func() {
		c.conn.Close()
		serverConn.Close()
		cancel()
	})
	return c
}

func (c *client) call(t *testing.T, method string, params, result any) {
	t.Helper()
	if err := c.conn.Call(context.Background(), method, params, result); err != nil {
		t.Fatalf("%s: %v", method, err)
	}
}

func (c *client) open(t *testing.T, text string) lsp.PublishDiagnosticsParams {
	t.Helper()
	c.call(t, "textDocument/didOpen", lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: testURI, Text: text}}, nil)
	return c.waitDiagnostics(t)
}

func (c *client) waitDiagnostics(t *testing.T) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-c.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return lsp.PublishDiagnosticsParams{}
	}
}

func TestInitialize(t *testing.T) {
	c := setup(t)
	var result lsp.InitializeResult
	c.call(t, "initialize", lsp.InitializeParams{}, &result)
	if !result.Capabilities.HoverProvider {
		t.Errorf("hover not advertised")
	}
	if result.Capabilities.CompletionProvider == nil {
		t.Errorf("completion not advertised")
	}
}

func TestUnknownMethod(t *testing.T) {
	c := setup(t)
	err := c.conn.Call(context.Background(), "textDocument/rename", struct{}{}, nil)
	if rpcErr, ok := err.(*jsonrpc2.Error); !ok || rpcErr.Code != jsonrpc2.CodeMethodNotFound {
		t.Errorf("got error %v, want method not found", err)
	}
}

func TestDiagnostics(t *testing.T) {
	c := setup(t)

	params := c.open(t, "echo ok")
	if params.URI != testURI || len(params.Diagnostics) != 0 {
		t.Errorf("got diagnostics %v for valid code", params.Diagnostics)
	}

	c.call(t, "textDocument/didChange", lsp.DidChangeTextDocumentParams{
		TextDocument: lsp.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: lsp.TextDocumentIdentifier{URI: testURI}},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: "echo ok\nfor x in a; do"}},
	}, nil)
	params = c.waitDiagnostics(t)
	if len(params.Diagnostics) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(params.Diagnostics))
	}
	d := params.Diagnostics[0]
	if d.Severity != lsp.Error || d.Source != "parse" {
		t.Errorf("got diagnostic %+v", d)
	}
	if d.Range.Start.Line != 1 {
		t.Errorf("diagnostic starts on line %d, want 1", d.Range.Start.Line)
	}
}

func TestHover(t *testing.T) {
	c := setup(t)
	c.open(t, "echo hello")
	var result lsp.Hover
	c.call(t, "textDocument/hover", lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
		Position:     lsp.Position{Line: 0, Character: 7},
	}, &result)
	want := []lsp.MarkedString{{Language: "markdown", Value: "Word: `hello`"}}
	if diff := cmp.Diff(want, result.Contents); diff != "" {
		t.Errorf("hover contents (-want +got):\n%s", diff)
	}
}

func TestCompletion(t *testing.T) {
	c := setup(t)
	c.open(t, "greet() { echo hi; }\ngr")
	var items []lsp.CompletionItem
	c.call(t, "textDocument/completion", lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: 1, Character: 2},
		}}, &items)
	var found *lsp.CompletionItem
	for i := range items {
		if items[i].Label == "greet" {
			found = &items[i]
		}
	}
	if found == nil {
		t.Fatalf("greet not among %d completions", len(items))
	}
	wantEdit := &lsp.TextEdit{
		Range:   lsp.Range{Start: lsp.Position{Line: 1}, End: lsp.Position{Line: 1, Character: 2}},
		NewText: "greet",
	}
	if diff := cmp.Diff(wantEdit, found.TextEdit); diff != "" {
		t.Errorf("text edit (-want +got):\n%s", diff)
	}

	c.call(t, "textDocument/completion", lsp.CompletionParams{
		TextDocumentPositionParams: lsp.TextDocumentPositionParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: testURI},
			Position:     lsp.Position{Line: 1, Character: 0},
		}}, &items)
	names := map[string]bool{}
	for _, item := range items {
		names[item.Label] = true
	}
	for _, name := range []string{"jobs", "fg", "greet"} {
		if !names[name] {
			t.Errorf("%s missing from completions at start of line", name)
		}
	}
}

var positionTests = []struct {
	s   string
	idx int
	pos lsp.Position
}{
	{"foo", 0, lsp.Position{Line: 0, Character: 0}},
	{"foo", 2, lsp.Position{Line: 0, Character: 2}},
	{"a\nb", 2, lsp.Position{Line: 1, Character: 0}},
	{"a\rb", 2, lsp.Position{Line: 1, Character: 0}},
	// U+1F600 takes two UTF-16 units.
	{"\U0001F600x", 4, lsp.Position{Line: 0, Character: 2}},
}

func TestPositions(t *testing.T) {
	for _, test := range positionTests {
		if got := lspPositionFromIdx(test.s, test.idx); got != test.pos {
			t.Errorf("lspPositionFromIdx(%q, %d) = %v, want %v", test.s, test.idx, got, test.pos)
		}
		if got := lspPositionToIdx(test.s, test.pos); got != test.idx {
			t.Errorf("lspPositionToIdx(%q, %v) = %d, want %d", test.s, test.pos, got, test.idx)
		}
	}
}
