package pages

import "context"

const (
	usernameInput  = "#user-name"
	passwordInput  = "#password"
	loginButton    = "#login-button"
	loginErrorText = `h3[data-test="error"]`
)

// LoginPage is the sign-in screen at the base URL.
type LoginPage struct {
	*Base
}

func NewLoginPage(surface Surface) *LoginPage {
	return &LoginPage{Base: NewBase(surface)}
}

func (p *LoginPage) EnterUsername(ctx context.Context, username string) error {
	return p.Fill(ctx, usernameInput, username)
}

func (p *LoginPage) EnterPassword(ctx context.Context, password string) error {
	return p.Fill(ctx, passwordInput, password)
}

func (p *LoginPage) ClickLogin(ctx context.Context) error {
	return p.Click(ctx, loginButton)
}

// Login fills both fields and submits. It stops at the first failing step.
func (p *LoginPage) Login(ctx context.Context, username, password string) error {
	if err := p.EnterUsername(ctx, username); err != nil {
		return err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return err
	}
	return p.ClickLogin(ctx)
}

// ErrorMessage returns the banner shown after a rejected login.
func (p *LoginPage) ErrorMessage(ctx context.Context) (string, error) {
	return p.Text(ctx, loginErrorText)
}
