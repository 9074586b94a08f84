// Package repl implements the interactive Read-Eval-Print Loop for smog.
//
// It follows the same Charm stack (Bubbletea/Bubbles/Lipgloss) and overall
// model shape as the reference REPL this package is adapted from: a single
// bubbletea model holding an input box, a spinner for in-flight evaluation,
// and a scrolling transcript of past inputs/outputs, styled with lipgloss
// and dimmable via Options.NoColor. Unlike that reference, each submitted
// input here is evaluated as its own complete, independent program — lexed,
// parsed, compiled, and run from a fresh Interpreter every time — rather
// than threaded through a persistent environment, since nothing in smog's
// compiler/vm pair exposes incremental re-entry into a previously-compiled
// frame's locals (see DESIGN.md).
package repl

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kristofer/smog/pkg/compiler"
	"github.com/kristofer/smog/pkg/lexer"
	"github.com/kristofer/smog/pkg/parser"
	"github.com/kristofer/smog/pkg/token"
	"github.com/kristofer/smog/pkg/vm"
)

const (
	Prompt     = "smog> "
	ContPrompt = " ...> "
)

// Options holds REPL runtime configuration, populated from flags parsed by
// cmd/smog's flag.FlagSet.
type Options struct {
	NoColor bool // disable lipgloss styling
	Debug   bool // print the total elapsed time after each evaluation
}

// Start runs the REPL to completion (until the user quits or the program
// exits), building a fresh Primitives/ModuleLoader pair for each evaluation.
func Start(options Options) {
	p := tea.NewProgram(initialModel(options))
	if _, err := p.Run(); err != nil {
		fmt.Println("Error running REPL:", err)
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	keywordStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6")).Bold(true)
	identifierStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F8F8F2"))
	literalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F1FA8C"))
	operatorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
	delimiterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#BD93F9"))
	stringStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
)

type evalResultMsg struct {
	output  string
	isError bool
	elapsed time.Duration
}

type historyEntry struct {
	input   string
	output  string
	isError bool
	elapsed time.Duration
}

type model struct {
	textInput textinput.Model
	spinner   spinner.Model
	history   []historyEntry

	evaluating   bool
	currentInput string
	buffer       string
	multiline    bool

	options Options
}

func initialModel(options Options) model {
	ti := textinput.New()
	ti.Placeholder = "enter smog code"
	ti.Focus()
	ti.Width = 80
	ti.Prompt = Prompt

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return model{textInput: ti, spinner: s, options: options}
}

func (m model) style(s lipgloss.Style, text string) string {
	if m.options.NoColor {
		return text
	}
	return s.Render(text)
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// isBalanced reports whether input's brackets/braces/parens are all
// closed, the heuristic used to decide whether Enter should submit the
// buffer or start/continue multiline input.
func isBalanced(input string) bool {
	var stack []byte
	pairs := map[byte]byte{')': '(', '}': '{', ']': '['}
	for i := 0; i < len(input); i++ {
		switch c := input[i]; c {
		case '(', '{', '[':
			stack = append(stack, c)
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

func evalCmd(input string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		out, isErr := evalOnce(input)
		return evalResultMsg{output: out, isError: isErr, elapsed: time.Since(start)}
	}
}

// evalOnce runs input through the full lex -> parse -> compile -> run
// pipeline as a fresh, independent program.
func evalOnce(input string) (output string, isError bool) {
	p := parser.New(input)
	program, err := p.Parse()
	if err != nil {
		return fmt.Sprintf("parse error: %v", err), true
	}

	instrs, err := compiler.New().Program(program)
	if err != nil {
		return fmt.Sprintf("compile error: %v", err), true
	}

	interp := vm.New(vm.NewModuleLoader(), vm.NewPrimitives())
	result, err := interp.Run(instrs)
	if err != nil {
		return fmt.Sprintf("runtime error: %v", err), true
	}
	return fmt.Sprintf("%#v", result), false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.evaluating {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case evalResultMsg:
		m.evaluating = false
		m.history = append(m.history, historyEntry{
			input:   m.currentInput,
			output:  msg.output,
			isError: msg.isError,
			elapsed: msg.elapsed,
		})
		m.currentInput = ""
		return m, nil

	case tea.KeyMsg:
		if m.evaluating && msg.Type != tea.KeyCtrlC {
			return m, m.spinner.Tick
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			input := m.textInput.Value()
			if input == "" {
				if m.multiline && m.buffer != "" {
					return m.submit(m.buffer)
				}
				return m, nil
			}
			if m.multiline {
				m.buffer += "\n" + input
				m.textInput.SetValue("")
				if isBalanced(m.buffer) {
					return m.submit(m.buffer)
				}
				return m, nil
			}
			if !isBalanced(input) {
				m.multiline = true
				m.buffer = input
				m.textInput.SetValue("")
				return m, nil
			}
			return m.submit(input)
		}
	}

	if !m.evaluating {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	if m.evaluating {
		return m, m.spinner.Tick
	}
	return m, cmd
}

func (m model) submit(input string) (tea.Model, tea.Cmd) {
	m.evaluating = true
	m.currentInput = input
	m.multiline = false
	m.buffer = ""
	m.textInput.SetValue("")
	return m, evalCmd(input)
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(m.style(titleStyle, " smog REPL "))
	s.WriteString("\n\n")

	for _, entry := range m.history {
		for i, line := range strings.Split(entry.input, "\n") {
			if i == 0 {
				s.WriteString(m.style(promptStyle, Prompt))
			} else {
				s.WriteString(m.style(promptStyle, ContPrompt))
			}
			s.WriteString(highlight(line, m.options))
			s.WriteString("\n")
		}
		if entry.isError {
			s.WriteString(m.style(errorStyle, entry.output))
		} else {
			s.WriteString(m.style(resultStyle, "=> "+entry.output))
		}
		if m.options.Debug {
			s.WriteString(m.style(historyStyle, fmt.Sprintf(" (%.3fs)", entry.elapsed.Seconds())))
		}
		s.WriteString("\n\n")
	}

	if m.evaluating {
		s.WriteString(m.style(promptStyle, Prompt))
		s.WriteString(highlight(m.currentInput, m.options))
		s.WriteString("\n")
		s.WriteString(m.spinner.View())
		s.WriteString(" evaluating...\n\n")
	}

	if m.multiline && !m.evaluating {
		s.WriteString(m.style(historyStyle, "(multiline: blank line evaluates)\n"))
	}

	if !m.evaluating {
		if m.multiline {
			m.textInput.Prompt = m.style(promptStyle, ContPrompt)
		} else {
			m.textInput.Prompt = m.style(promptStyle, Prompt)
		}
		s.WriteString(m.textInput.View())
		s.WriteString("\n")
	}

	s.WriteString(m.style(historyStyle, "\nEsc/Ctrl+C to exit"))
	return s.String()
}

// highlight renders one line of source with per-token styling, re-lexing
// it independently of the evaluation pipeline (a lexer error just falls
// back to unstyled text — this is cosmetic only).
func highlight(line string, opts Options) string {
	if opts.NoColor {
		return line
	}
	l := lexer.New(line)
	var b strings.Builder
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
		b.WriteString(styleToken(tok))
		b.WriteByte(' ')
	}
	return strings.TrimRight(b.String(), " ")
}

func styleToken(tok token.Token) string {
	switch tok.Kind {
	case token.Let, token.Var, token.Do, token.Set, token.On, token.Return,
		token.Import, token.Export, token.If, token.Then, token.Else,
		token.End, token.True, token.False, token.SelfRef:
		return keywordStyle.Render(tok.Literal)
	case token.Integer:
		return literalStyle.Render(tok.Literal)
	case token.String:
		return stringStyle.Render(`"` + tok.Literal + `"`)
	case token.Operator, token.ColonEquals:
		return operatorStyle.Render(tok.Literal)
	case token.OpenBrace, token.CloseBrace, token.OpenBracket, token.CloseBracket,
		token.OpenParen, token.CloseParen, token.Colon, token.Semicolon, token.QuestionMark:
		return delimiterStyle.Render(tok.Literal)
	case token.Identifier, token.QuotedIdentifier:
		return identifierStyle.Render(tok.Literal)
	default:
		return tok.Literal
	}
}
