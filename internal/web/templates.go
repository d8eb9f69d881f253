package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/google/uuid"

	"github.com/jaminalder/perfect-tic-tac-toe/internal/app"
	"github.com/jaminalder/perfect-tic-tac-toe/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellSymbol": func(c domain.Cell) string {
			if c == domain.Empty {
				return ""
			}
			return c.String()
		},
		"filled": func(c domain.Cell) bool { return c != domain.Empty },
		"add":    func(a, b int) int { return a + b },
		"mul":    func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-Tac-Toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
<style>
.row{display:flex}.row form{margin:0}
.row button{width:4em;height:4em;font-size:1.5em}
.win button{background:#fde68a}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(indexTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board-stream" hx-sse="swap:board">{{template "board" .}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const indexTemplate = `<h1>TicTacToe</h1>
<form action="/game" method="post">
  <label>Mode
    <select name="mode">
      <option value="engine">Against the engine</option>
      <option value="two-player">Two players</option>
    </select>
  </label>
  <label>Play as
    <select name="mark">
      <option value="X">X (moves first)</option>
      <option value="O">O</option>
    </select>
  </label>
  <button>Create</button>
</form>`

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      {{$i := add (mul $r 3) $c}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post"{{if index $.Highlight $i}} class="win"{{end}}>
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit"{{if or $.Over (filled (index $.Board $i))}} disabled{{end}}>{{cellSymbol (index $.Board $i)}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post">
    <button type="submit">Reset</button>
  </form>
</div>
`

// boardView is the data behind the board fragment.
type boardView struct {
	ID        string
	Board     domain.Board
	Highlight [9]bool
	Over      bool
	Status    string
	Error     string
}

func newBoardView(gs app.GameState, errMsg string) boardView {
	g := gs.Match.Game
	v := boardView{ID: gs.ID, Board: g.Board, Over: g.Over, Error: errMsg, Status: statusText(gs.Match)}
	if ln, ok := g.Board.WinningLine(g.Winner); ok {
		for _, i := range ln {
			v.Highlight[i] = true
		}
	}
	return v
}

func statusText(m app.Match) string {
	g := m.Game
	if m.Mode == app.ModeEngine {
		switch m.Outcome() {
		case app.OutcomeWin:
			return "You win!"
		case app.OutcomeLose:
			return "You lose."
		case app.OutcomeDraw:
			return "Draw."
		}
		return "Your move (" + m.Human.String() + ")"
	}
	if g.Over {
		if g.Winner == domain.Empty {
			return "Draw."
		}
		return g.Winner.String() + " wins!"
	}
	return g.Turn.String() + " to move"
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
		return c.Value
	}
	// Generate UUIDv4 for player ID
	v := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
	return v
}
