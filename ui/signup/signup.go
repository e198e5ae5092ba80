package signup

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/piaflabs/piaf/db"
	"github.com/piaflabs/piaf/domain"
	"github.com/piaflabs/piaf/util"
)

var (
	Style = lipgloss.NewStyle().Height(25).Width(80).
		Align(lipgloss.Center, lipgloss.Center).
		BorderStyle(lipgloss.ThickBorder()).
		Margin(0, 3)

	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type Model struct {
	Username textinput.Model
	Email    textinput.Model
	Password textinput.Model
	Step     int // 0=username, 1=email, 2=password
	Err      error
	Created  *domain.Account

	accounts *db.AccountStore
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			switch m.Step {
			case 0:
				m.Step = 1
				m.Email.Focus()
				m.Username.Blur()
				return m, nil
			case 1:
				m.Step = 2
				m.Password.Focus()
				m.Email.Blur()
				return m, nil
			case 2:
				return m.submit()
			}
		}
	}

	switch m.Step {
	case 0:
		m.Username, cmd = m.Username.Update(msg)
	case 1:
		m.Email, cmd = m.Email.Update(msg)
	case 2:
		m.Password, cmd = m.Password.Update(msg)
	}

	return m, cmd
}

// submit tries to create the account and sends the form back to the
// offending step when the store rejects it.
func (m Model) submit() (tea.Model, tea.Cmd) {
	acc, err := m.accounts.CreateAccount(m.Username.Value(), m.Email.Value(), m.Password.Value())
	if err != nil {
		m.Err = err
		switch {
		case isUsernameError(err):
			m.Step = 0
			m.Username.Focus()
			m.Password.Blur()
		case isEmailError(err):
			m.Step = 1
			m.Email.Focus()
			m.Password.Blur()
		default:
			m.Password.SetValue("")
		}
		return m, nil
	}

	m.Created = acc
	return m, tea.Quit
}

func (m Model) View() string {
	var prompt string
	var input string
	var help string

	switch m.Step {
	case 0:
		prompt = "Choose a username:"
		input = m.Username.View()
		help = "(enter to continue, ctrl-c to quit)"
	case 1:
		prompt = fmt.Sprintf("Username: %s\n\nYour email address:", m.Username.Value())
		input = m.Email.View()
		help = "(enter to continue, ctrl-c to quit)"
	case 2:
		prompt = fmt.Sprintf("Username: %s\nEmail: %s\n\nChoose a password:",
			m.Username.Value(),
			m.Email.Value())
		input = m.Password.View()
		help = "(enter to create the account, ctrl-c to quit)"
	}

	view := fmt.Sprintf(
		"Signing up for %s\n\n%s\n\n%s\n\n%s",
		util.GetNameAndVersion(),
		prompt,
		input,
		help,
	)

	if m.Err != nil {
		view += "\n\n" + errStyle.Render(m.Err.Error())
	}

	return view + "\n"
}

func isUsernameError(err error) bool {
	return errors.Is(err, db.ErrUsernameTaken)
}

func isEmailError(err error) bool {
	return errors.Is(err, db.ErrEmailTaken)
}

func InitialModel(accounts *db.AccountStore) Model {
	username := textinput.New()
	username.Placeholder = "jack"
	username.Focus()
	username.CharLimit = 15
	username.Width = 20

	email := textinput.New()
	email.Placeholder = "jack@example.com"
	email.CharLimit = 50
	email.Width = 50

	password := textinput.New()
	password.Placeholder = "at least 8 chars, 1 upper, 1 digit"
	password.CharLimit = 64
	password.Width = 40
	password.EchoMode = textinput.EchoPassword

	return Model{
		Username: username,
		Email:    email,
		Password: password,
		Step:     0,
		accounts: accounts,
	}
}

// Run drives the signup form to completion on the local terminal.
func Run(accounts *db.AccountStore) (*domain.Account, error) {
	p := tea.NewProgram(InitialModel(accounts))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok || m.Created == nil {
		return nil, nil
	}
	return m.Created, nil
}
