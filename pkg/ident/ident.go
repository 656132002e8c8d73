// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ident canonicalizes user identifiers (email addresses and phone numbers).
//
// # Usage
//
// Every OTP challenge and report flow is keyed by the canonical form, so
// "Alice@Example.com " and "alice@example.com" share one flow and one code.
package ident

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Type is the kind of identifier a user proves ownership of.
type Type string

const (
	Email Type = "email"
	Phone Type = "phone"
)

// ErrInvalid is returned for identifiers that cannot be canonicalized.
var ErrInvalid = errors.New("ident: invalid identifier")

// folder is safe for concurrent use; cases.Caser is only stateful across Transform calls.
var folder = cases.Fold()

// Valid reports whether t is a supported identifier type.
func (t Type) Valid() bool {
	return t == Email || t == Phone
}

// Normalize returns the canonical form of raw for the given type.
func Normalize(t Type, raw string) (string, error) {
	switch t {
	case Email:
		return NormalizeEmail(raw)
	case Phone:
		return NormalizePhone(raw)
	default:
		return "", ErrInvalid
	}
}

// Infer guesses the type of raw: anything with an '@' is an email, the rest a phone.
func Infer(raw string) Type {
	if strings.Contains(raw, "@") {
		return Email
	}
	return Phone
}

// Canonical infers the type of raw and normalizes it.
func Canonical(raw string) (string, Type, error) {
	t := Infer(raw)
	normalized, err := Normalize(t, raw)
	return normalized, t, err
}

// NormalizeEmail returns the NFKC, case-folded form of an email address.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (full-width and compatibility forms collapse).
// 3. Case-folds the whole address.
// 4. Checks there is exactly one '@' with a dotted domain and no whitespace.
func NormalizeEmail(raw string) (string, error) {
	email := norm.NFKC.String(strings.TrimSpace(raw))
	email = folder.String(email)

	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "", ErrInvalid
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalid
	}
	if strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return "", ErrInvalid
	}

	return email, nil
}

// NormalizePhone reduces a phone number to E.164 ("+" followed by 8 to 15 digits).
//
// Spaces, dots, dashes and parentheses are dropped and a leading "00" is read
// as the international prefix. Numbers without a country code are rejected.
func NormalizePhone(raw string) (string, error) {
	phone := norm.NFKC.String(strings.TrimSpace(raw))

	var digits strings.Builder
	for index, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == '+' && index == 0:
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", ErrInvalid
		}
	}

	number := digits.String()
	switch {
	case strings.HasPrefix(phone, "+"):
	case strings.HasPrefix(number, "00"):
		number = number[2:]
	default:
		return "", ErrInvalid
	}

	if len(number) < 8 || len(number) > 15 || number[0] == '0' {
		return "", ErrInvalid
	}
	return "+" + number, nil
}
