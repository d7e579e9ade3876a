package lexer

import (
	"testing"
)

func TestNextToken(t *testing.T) {
	input := `status = 'pending' AND order_date >= '2024-06-01'
OR amount < 9.99 AND id IN (1, 2) AND name LIKE 'Sm%' AND flag != TRUE AND other <> NULL`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{IDENTIFIER, "status"},
		{EQUALS, "="},
		{STRING, "pending"},
		{AND, "AND"},
		{IDENTIFIER, "order_date"},
		{GTE, ">="},
		{STRING, "2024-06-01"},
		{OR, "OR"},
		{IDENTIFIER, "amount"},
		{LT, "<"},
		{NUMBER, "9.99"},
		{AND, "AND"},
		{IDENTIFIER, "id"},
		{IN, "IN"},
		{PAREN_OPEN, "("},
		{NUMBER, "1"},
		{COMMA, ","},
		{NUMBER, "2"},
		{PAREN_CLOSE, ")"},
		{AND, "AND"},
		{IDENTIFIER, "name"},
		{LIKE, "LIKE"},
		{STRING, "Sm%"},
		{AND, "AND"},
		{IDENTIFIER, "flag"},
		{NOT_EQUALS, "!="},
		{TRUE, "TRUE"},
		{AND, "AND"},
		{IDENTIFIER, "other"},
		{NOT_EQUALS, "<>"},
		{NULL, "NULL"},
		{EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (%q)",
				i, tt.expectedType, tok.Type, tok.Literal)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestQualifiedNamesAndJoinKeywords(t *testing.T) {
	input := `users LEFT JOIN orders ON users.id = orders.user_id`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{IDENTIFIER, "users"},
		{LEFT, "LEFT"},
		{JOIN, "JOIN"},
		{IDENTIFIER, "orders"},
		{ON, "ON"},
		{IDENTIFIER, "users"},
		{DOT, "."},
		{IDENTIFIER, "id"},
		{EQUALS, "="},
		{IDENTIFIER, "orders"},
		{DOT, "."},
		{IDENTIFIER, "user_id"},
		{EOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType || tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - expected (%v, %q), got (%v, %q)",
				i, tt.expectedType, tt.expectedLiteral, tok.Type, tok.Literal)
		}
	}
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	tokens, err := Tokenize("a = 1 and b = 2 or c like 'x%'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var kinds []TokenType
	for _, tok := range tokens {
		kinds = append(kinds, tok.Type)
	}

	expected := []TokenType{
		IDENTIFIER, EQUALS, NUMBER,
		AND,
		IDENTIFIER, EQUALS, NUMBER,
		OR,
		IDENTIFIER, LIKE, STRING,
	}
	if len(kinds) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(kinds))
	}
	for i := range expected {
		if kinds[i] != expected[i] {
			t.Errorf("token %d: expected %v, got %v", i, expected[i], kinds[i])
		}
	}
}

func TestTokenizeRejectsIllegalCharacter(t *testing.T) {
	if _, err := Tokenize("a = #"); err == nil {
		t.Error("expected error for illegal character, got nil")
	}
}
