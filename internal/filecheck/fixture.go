package filecheck

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/tools/txtar"
	"tlog.app/go/errors"
)

// Fixture is a txtar archive whose comment configures the compilation:
//
//	target: x86_64 has_ssse3
//	target: aarch64
//	spectre: on
//
// and whose files hold the directives expected for the function of the same name.
type Fixture struct {
	Name    string
	Targets []string
	Spectre bool
	Cases   []Case
}

// Case is the expected output of one function.
type Case struct {
	Name       string
	Directives []Directive
}

// ReadFixture parses the fixture at path.
func ReadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fixture")
	}
	f, err := ParseFixture(path, data)
	if err != nil {
		return nil, errors.Wrap(err, "%s", path)
	}
	return f, nil
}

// ParseFixture parses a fixture held in memory.
func ParseFixture(name string, data []byte) (*Fixture, error) {
	ar := txtar.Parse(data)
	f := &Fixture{Name: name}

	s := bufio.NewScanner(strings.NewReader(string(ar.Comment)))
	for lnum := 1; s.Scan(); lnum++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, val, ok := strings.Cut(line, ":")
		if !ok {
			return nil, errors.New("line %d: expected key: value, got %q", lnum, line)
		}
		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "target":
			f.Targets = append(f.Targets, val)
		case "spectre":
			switch val {
			case "on":
				f.Spectre = true
			case "off":
				f.Spectre = false
			default:
				return nil, errors.New("line %d: spectre must be on or off, got %q", lnum, val)
			}
		default:
			return nil, errors.New("line %d: unknown key %q", lnum, key)
		}
	}
	if len(f.Targets) == 0 {
		return nil, errors.New("no target")
	}

	for _, file := range ar.Files {
		ds, err := Parse(string(file.Data))
		if err != nil {
			return nil, errors.Wrap(err, "%s", file.Name)
		}
		f.Cases = append(f.Cases, Case{Name: file.Name, Directives: ds})
	}
	return f, nil
}

// Check matches every case against the output produced for it by compile.
func (f *Fixture) Check(compile func(name string) (string, error)) error {
	for _, c := range f.Cases {
		out, err := compile(c.Name)
		if err != nil {
			return errors.Wrap(err, "%s", c.Name)
		}
		if err := Match(c.Directives, out); err != nil {
			return errors.Wrap(err, "%s", c.Name)
		}
	}
	return nil
}
