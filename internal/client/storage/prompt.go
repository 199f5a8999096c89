package storage

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/atinyakov/FitKeeper/internal/models"
)

// Prompter asks the user for input line by line.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints question and returns the trimmed answer.
func (p *Prompter) Ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// Credentials asks for an email and a password.
func (p *Prompter) Credentials() (email, password string, err error) {
	if email, err = p.Ask("Email: "); err != nil {
		return "", "", err
	}
	if password, err = p.Ask("Password: "); err != nil {
		return "", "", err
	}
	return email, password, nil
}

// Registration asks for the credentials and the initial profile.
func (p *Prompter) Registration() (Registration, error) {
	var reg Registration
	var err error

	if reg.Email, reg.Password, err = p.Credentials(); err != nil {
		return reg, err
	}
	if reg.Name, err = p.Ask("Name: "); err != nil {
		return reg, err
	}
	if reg.Weight, err = p.number("Weight (kg): "); err != nil {
		return reg, err
	}
	if reg.Height, err = p.number("Height (cm): "); err != nil {
		return reg, err
	}
	age, err := p.number("Age: ")
	if err != nil {
		return reg, err
	}
	reg.Age = int(age)
	if reg.Gender, err = p.Ask("Gender (Male/Female): "); err != nil {
		return reg, err
	}
	goal, err := p.Ask("Goal (Weight Loss/Gain Weight/Maintain): ")
	if err != nil {
		return reg, err
	}
	reg.Goal = models.Goal(goal)
	return reg, nil
}

func (p *Prompter) number(question string) (float64, error) {
	raw, err := p.Ask(question)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", raw)
	}
	return v, nil
}
