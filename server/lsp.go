// Package server provides editor support for playlang over the Language
// Server Protocol.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/playlang/compiler"
	"github.com/chazu/playlang/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "playlang-lsp"

var log = commonlog.GetLogger("playlang.server")

// LspServer lexes open documents and reports problems to the editor.
type LspServer struct {
	byteWidth int

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server. Push literals are checked against
// byteWidth.
func NewLSP(byteWidth int) *LspServer {
	s := &LspServer{
		byteWidth: byteWidth,
		docs:      make(map[string]string),
		version:   "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("playlang LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	return completionItems(), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return s.hover(text, params.Position), nil
}

// hover describes the instruction built from the character under the cursor.
// Characters inside comments, whitespace and documents that fail to lex
// have no hover.
func (s *LspServer) hover(text string, pos protocol.Position) *protocol.Hover {
	lexer := compiler.NewLexer(text)
	lexer.SetByteWidth(s.byteWidth)
	prog, err := lexer.Tokenize()
	if err != nil {
		return nil
	}

	line, col := int(pos.Line)+1, int(pos.Character)+1
	for _, in := range prog {
		if in.Pos.Line != line || in.Pos.Column != col {
			continue
		}
		info := vm.GetKindInfo(in.Kind)

		var b strings.Builder
		if in.Kind == vm.KindPush {
			fmt.Fprintf(&b, "**push** `%d`", in.Value)
		} else {
			fmt.Fprintf(&b, "**%s** `%c`", info.Name, info.Symbol)
		}
		fmt.Fprintf(&b, " (%s)\n\n", info.Class)
		fmt.Fprintf(&b, "%s\n\n", info.Doc)
		b.WriteString(stackEffect(info))

		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: b.String(),
			},
		}
	}
	return nil
}

func stackEffect(info vm.KindInfo) string {
	if info.Pops < 0 {
		return "Stack: clears all values"
	}
	return fmt.Sprintf("Stack: pops %d, pushes %d", info.Pops, info.Pushes)
}

func completionItems() []protocol.CompletionItem {
	syms := compiler.Symbols()
	runes := make([]rune, 0, len(syms))
	for r := range syms {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })

	items := make([]protocol.CompletionItem, 0, len(runes))
	for _, r := range runes {
		info := vm.GetKindInfo(syms[r])
		kind := protocol.CompletionItemKindOperator
		detail := info.Name
		doc := info.Doc
		insert := string(r)
		items = append(items, protocol.CompletionItem{
			Label:         insert,
			Kind:          &kind,
			Detail:        &detail,
			Documentation: doc,
			InsertText:    &insert,
		})
	}
	return items
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := Diagnose(text, s.byteWidth)
	log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnose lexes text and reports lex errors as errors, and unterminated
// strings, comments and unbalanced blocks as warnings.
func Diagnose(text string, byteWidth int) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	lexer := compiler.NewLexer(text)
	lexer.SetByteWidth(byteWidth)
	prog, err := lexer.Tokenize()
	if err != nil {
		pos := vm.Position{Line: 1, Column: 1}
		var lexErr *compiler.LexError
		var litErr *compiler.LiteralError
		switch {
		case errors.As(err, &lexErr):
			pos = lexErr.Pos
		case errors.As(err, &litErr):
			pos = litErr.Pos
		}
		return append(diagnostics, diagnostic(pos, protocol.DiagnosticSeverityError, err.Error()))
	}

	if mode, pos, open := lexer.Unterminated(); open {
		diagnostics = append(diagnostics, diagnostic(pos, protocol.DiagnosticSeverityWarning,
			fmt.Sprintf("unterminated %s", mode)))
	}
	for _, issue := range prog.CheckBlocks() {
		diagnostics = append(diagnostics, diagnostic(issue.Inst.Pos, protocol.DiagnosticSeverityWarning, issue.Message))
	}
	return diagnostics
}

// diagnostic builds a one-character diagnostic. Columns count runes, which
// matches UTF-16 offsets for the basic multilingual plane.
func diagnostic(pos vm.Position, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	source := lspName
	start := protocol.Position{Line: protocol.UInteger(pos.Line - 1), Character: protocol.UInteger(pos.Column - 1)}
	end := protocol.Position{Line: start.Line, Character: start.Character + 1}
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  msg,
	}
}

func boolPtr(b bool) *bool {
	return &b
}
