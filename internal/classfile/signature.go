package classfile

import (
	"fmt"
	"strings"
)

// mapSignature rewrites every class name embedded in a field descriptor,
// method descriptor, array class name or generic signature. fn receives and
// returns internal names.
//
// Grammar (JVMS 4.3 and 4.7.9.1), simplified:
//
//	Signature      = [FormalParams] { '(' | ')' | '^' | FieldType }
//	FormalParams   = '<' { Identifier ':' [FieldType] { ':' FieldType } } '>'
//	FieldType      = BaseType | '[' FieldType | 'T' Identifier ';' | ClassType
//	ClassType      = 'L' Name [TypeArgs] { '.' Identifier [TypeArgs] } ';'
//	TypeArgs       = '<' { '*' | ['+' | '-'] FieldType } '>'
func mapSignature(sig string, fn func(string) string) (string, error) {
	m := &sigMapper{sig: sig, fn: fn}
	if err := m.signature(); err != nil {
		return "", fmt.Errorf("signature %q: %w", sig, err)
	}
	return m.out.String(), nil
}

type sigMapper struct {
	sig string
	pos int
	out strings.Builder
	fn  func(string) string
}

func (m *sigMapper) peek() (byte, error) {
	if m.pos >= len(m.sig) {
		return 0, fmt.Errorf("unexpected end at offset %d", m.pos)
	}
	return m.sig[m.pos], nil
}

func (m *sigMapper) copyByte() {
	m.out.WriteByte(m.sig[m.pos])
	m.pos++
}

// scanUntil returns the text up to (not including) the first byte in stops
func (m *sigMapper) scanUntil(stops string) (string, error) {
	start := m.pos
	for m.pos < len(m.sig) && !strings.ContainsRune(stops, rune(m.sig[m.pos])) {
		m.pos++
	}
	if m.pos >= len(m.sig) {
		return "", fmt.Errorf("unterminated name at offset %d", start)
	}
	if m.pos == start {
		return "", fmt.Errorf("empty name at offset %d", start)
	}
	return m.sig[start:m.pos], nil
}

func (m *sigMapper) signature() error {
	if len(m.sig) == 0 {
		return fmt.Errorf("empty")
	}
	if m.sig[0] == '<' {
		if err := m.formalParams(); err != nil {
			return err
		}
	}
	for m.pos < len(m.sig) {
		switch m.sig[m.pos] {
		case '(', ')', '^':
			m.copyByte()
		default:
			if err := m.fieldType(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *sigMapper) formalParams() error {
	m.copyByte() // '<'
	for {
		c, err := m.peek()
		if err != nil {
			return err
		}
		if c == '>' {
			m.copyByte()
			return nil
		}

		ident, err := m.scanUntil(":")
		if err != nil {
			return err
		}
		m.out.WriteString(ident)

		for m.pos < len(m.sig) && m.sig[m.pos] == ':' {
			m.copyByte()
			c, err := m.peek()
			if err != nil {
				return err
			}
			if c == 'L' || c == 'T' || c == '[' {
				if err := m.fieldType(); err != nil {
					return err
				}
			}
		}
	}
}

func (m *sigMapper) fieldType() error {
	c, err := m.peek()
	if err != nil {
		return err
	}

	switch c {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z', 'V':
		m.copyByte()
		return nil
	case '[':
		m.copyByte()
		return m.fieldType()
	case 'T':
		ident, err := m.scanUntil(";")
		if err != nil {
			return err
		}
		m.out.WriteString(ident)
		m.copyByte()
		return nil
	case 'L':
		return m.classType()
	default:
		return fmt.Errorf("unexpected %q at offset %d", c, m.pos)
	}
}

func (m *sigMapper) classType() error {
	m.copyByte() // 'L'
	name, err := m.scanUntil(";<.")
	if err != nil {
		return err
	}
	m.out.WriteString(m.fn(name))

	for {
		c, err := m.peek()
		if err != nil {
			return err
		}
		switch c {
		case '<':
			if err := m.typeArgs(); err != nil {
				return err
			}
		case '.':
			m.copyByte()
			inner, err := m.scanUntil(";<.")
			if err != nil {
				return err
			}
			m.out.WriteString(inner)
		case ';':
			m.copyByte()
			return nil
		default:
			return fmt.Errorf("unexpected %q at offset %d", c, m.pos)
		}
	}
}

func (m *sigMapper) typeArgs() error {
	m.copyByte() // '<'
	for {
		c, err := m.peek()
		if err != nil {
			return err
		}
		switch c {
		case '>':
			m.copyByte()
			return nil
		case '*':
			m.copyByte()
		case '+', '-':
			m.copyByte()
			if err := m.fieldType(); err != nil {
				return err
			}
		default:
			if err := m.fieldType(); err != nil {
				return err
			}
		}
	}
}
