// Package parser turns textual predicate and join clauses into the
// normalized form the advisor analyzes. It deliberately covers only the
// predicate/join subset needed for cost reasoning, not a SQL grammar;
// full statements belong to an upstream collaborator.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leengari/query-advisor/internal/domain/query"
	"github.com/leengari/query-advisor/internal/parser/lexer"
)

type Parser struct {
	tokens  []lexer.Token
	curPos  int
	curTok  lexer.Token
	peekTok lexer.Token
}

func New(tokens []lexer.Token) *Parser {
	p := &Parser{tokens: tokens, curPos: 0}
	// Read two tokens to set curTok and peekTok
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	if p.curPos < len(p.tokens) {
		p.peekTok = p.tokens[p.curPos]
		p.curPos++
	} else {
		p.peekTok = lexer.Token{Type: lexer.EOF}
	}
}

// ParsePredicate parses a WHERE-style predicate expression, e.g.
//
//	status = 'pending' AND order_date >= '2024-06-01'
//	lower(email) = 'a@b.c' OR id IN (1, 2, 3)
func ParsePredicate(input string) (query.Predicate, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty predicate")
	}

	p := New(tokens)
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.curTok.Type != lexer.EOF {
		return nil, fmt.Errorf("unexpected trailing token %q", p.curTok.Literal)
	}
	return pred, nil
}

// ParseJoinEdge parses a join clause, e.g.
//
//	users INNER JOIN orders ON users.id = orders.user_id
func ParseJoinEdge(input string) (*query.JoinEdge, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, err
	}

	p := New(tokens)
	return p.parseJoinEdge()
}

func (p *Parser) parseOr() (query.Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	branches := []query.Predicate{left}
	for p.curTok.Type == lexer.OR {
		p.nextToken()
		branch, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}

	if len(branches) == 1 {
		return branches[0], nil
	}
	return &query.Or{Preds: branches}, nil
}

func (p *Parser) parseAnd() (query.Predicate, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}

	conjuncts := []query.Predicate{left}
	for p.curTok.Type == lexer.AND {
		p.nextToken()
		conjunct, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		conjuncts = append(conjuncts, conjunct)
	}

	if len(conjuncts) == 1 {
		return conjuncts[0], nil
	}
	return &query.And{Preds: conjuncts}, nil
}

func (p *Parser) parseAtom() (query.Predicate, error) {
	switch p.curTok.Type {
	case lexer.PAREN_OPEN:
		p.nextToken()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.curTok.Type != lexer.PAREN_CLOSE {
			return nil, fmt.Errorf("expected closing parenthesis, got %q", p.curTok.Literal)
		}
		p.nextToken()
		return inner, nil

	case lexer.EXISTS:
		return p.parseExists()

	case lexer.IDENTIFIER:
		if p.peekTok.Type == lexer.PAREN_OPEN {
			return p.parseFuncWrapped()
		}
		return p.parseComparison()

	default:
		return nil, fmt.Errorf("unexpected token %q in predicate", p.curTok.Literal)
	}
}

// parseExists captures the subquery text verbatim. A qualified reference
// inside the parentheses marks the subquery as correlated.
func (p *Parser) parseExists() (query.Predicate, error) {
	p.nextToken()
	if p.curTok.Type != lexer.PAREN_OPEN {
		return nil, fmt.Errorf("expected ( after EXISTS, got %q", p.curTok.Literal)
	}
	p.nextToken()

	var parts []string
	correlated := false
	depth := 1
	for depth > 0 {
		if p.curTok.Type == lexer.EOF {
			return nil, fmt.Errorf("unterminated EXISTS subquery")
		}
		if p.curTok.Type == lexer.PAREN_OPEN {
			depth++
		}
		if p.curTok.Type == lexer.PAREN_CLOSE {
			depth--
			if depth == 0 {
				break
			}
		}
		if p.curTok.Type == lexer.DOT {
			correlated = true
		}
		parts = append(parts, p.curTok.Literal)
		p.nextToken()
	}
	p.nextToken() // consume closing paren

	return &query.Exists{
		Correlated: correlated,
		Subquery:   strings.Join(parts, " "),
	}, nil
}

// parseFuncWrapped handles a function applied to the column side, e.g.
// lower(email) = 'x' or COALESCE(phone, '') = ''. The first identifier
// argument is the wrapped column; remaining arguments are skipped.
func (p *Parser) parseFuncWrapped() (query.Predicate, error) {
	funcName := p.curTok.Literal
	p.nextToken() // onto (
	p.nextToken() // first argument

	table, column := "", ""
	depth := 1
	for depth > 0 {
		if p.curTok.Type == lexer.EOF {
			return nil, fmt.Errorf("unterminated argument list for %s", funcName)
		}
		if p.curTok.Type == lexer.PAREN_OPEN {
			depth++
		}
		if p.curTok.Type == lexer.PAREN_CLOSE {
			depth--
			if depth == 0 {
				break
			}
		}
		if column == "" && p.curTok.Type == lexer.IDENTIFIER {
			table, column = p.parseQualifiedName()
			continue
		}
		p.nextToken()
	}
	p.nextToken() // consume closing paren

	if column == "" {
		return nil, fmt.Errorf("%s(...) does not reference a column", funcName)
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	cmp := &query.Comparison{Table: table, Column: column, Operator: op}
	if err := p.parseOperand(cmp); err != nil {
		return nil, err
	}

	return &query.FuncWrapped{Func: funcName, Inner: cmp}, nil
}

func (p *Parser) parseComparison() (query.Predicate, error) {
	table, column := p.parseQualifiedName()

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}

	cmp := &query.Comparison{Table: table, Column: column, Operator: op}
	if op == query.OpIn {
		return cmp, p.parseInList(cmp)
	}
	return cmp, p.parseOperand(cmp)
}

// parseQualifiedName consumes IDENT or IDENT.IDENT and returns (table, column).
func (p *Parser) parseQualifiedName() (string, string) {
	first := p.curTok.Literal
	p.nextToken()
	if p.curTok.Type == lexer.DOT && p.peekTok.Type == lexer.IDENTIFIER {
		p.nextToken()
		second := p.curTok.Literal
		p.nextToken()
		return first, second
	}
	return "", first
}

func (p *Parser) parseOperator() (query.Operator, error) {
	var op query.Operator
	switch p.curTok.Type {
	case lexer.EQUALS:
		op = query.OpEq
	case lexer.NOT_EQUALS:
		op = query.OpNe
	case lexer.LT:
		op = query.OpLt
	case lexer.LTE:
		op = query.OpLe
	case lexer.GT:
		op = query.OpGt
	case lexer.GTE:
		op = query.OpGe
	case lexer.LIKE:
		op = query.OpLike
	case lexer.IN:
		op = query.OpIn
	default:
		return "", fmt.Errorf("expected comparison operator, got %q", p.curTok.Literal)
	}
	p.nextToken()
	return op, nil
}

func (p *Parser) parseOperand(cmp *query.Comparison) error {
	switch p.curTok.Type {
	case lexer.STRING:
		cmp.Value = p.curTok.Literal
	case lexer.NUMBER:
		val, err := parseNumber(p.curTok.Literal)
		if err != nil {
			return err
		}
		cmp.Value = val
	case lexer.TRUE:
		cmp.Value = true
	case lexer.FALSE:
		cmp.Value = false
	case lexer.NULL:
		cmp.Value = nil
	case lexer.IDENTIFIER:
		// Column or expression operand: dependent on the row being tested.
		table, column := p.parseQualifiedName()
		cmp.RowDependent = true
		if table != "" {
			cmp.OperandExpr = table + "." + column
		} else {
			cmp.OperandExpr = column
		}
		return nil
	default:
		return fmt.Errorf("expected operand, got %q", p.curTok.Literal)
	}
	p.nextToken()
	return nil
}

func (p *Parser) parseInList(cmp *query.Comparison) error {
	if p.curTok.Type != lexer.PAREN_OPEN {
		return fmt.Errorf("expected ( after IN, got %q", p.curTok.Literal)
	}
	p.nextToken()

	for {
		switch p.curTok.Type {
		case lexer.STRING:
			cmp.Values = append(cmp.Values, p.curTok.Literal)
		case lexer.NUMBER:
			val, err := parseNumber(p.curTok.Literal)
			if err != nil {
				return err
			}
			cmp.Values = append(cmp.Values, val)
		case lexer.TRUE:
			cmp.Values = append(cmp.Values, true)
		case lexer.FALSE:
			cmp.Values = append(cmp.Values, false)
		default:
			return fmt.Errorf("expected literal in IN list, got %q", p.curTok.Literal)
		}
		p.nextToken()

		if p.curTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if p.curTok.Type != lexer.PAREN_CLOSE {
		return fmt.Errorf("expected ) closing IN list, got %q", p.curTok.Literal)
	}
	p.nextToken()
	return nil
}

func (p *Parser) parseJoinEdge() (*query.JoinEdge, error) {
	if p.curTok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name, got %q", p.curTok.Literal)
	}
	edge := &query.JoinEdge{LeftTable: p.curTok.Literal, Kind: query.JoinInner}
	p.nextToken()

	switch p.curTok.Type {
	case lexer.INNER:
		edge.Kind = query.JoinInner
		p.nextToken()
	case lexer.LEFT:
		edge.Kind = query.JoinLeft
		p.nextToken()
	case lexer.RIGHT:
		edge.Kind = query.JoinRight
		p.nextToken()
	case lexer.FULL:
		edge.Kind = query.JoinFull
		p.nextToken()
	case lexer.SEMI:
		edge.Kind = query.JoinSemi
		p.nextToken()
	case lexer.ANTI:
		edge.Kind = query.JoinAnti
		p.nextToken()
	}

	if p.curTok.Type != lexer.JOIN {
		return nil, fmt.Errorf("expected JOIN, got %q", p.curTok.Literal)
	}
	p.nextToken()

	if p.curTok.Type != lexer.IDENTIFIER {
		return nil, fmt.Errorf("expected table name after JOIN, got %q", p.curTok.Literal)
	}
	edge.RightTable = p.curTok.Literal
	p.nextToken()

	if p.curTok.Type != lexer.ON {
		return nil, fmt.Errorf("expected ON, got %q", p.curTok.Literal)
	}
	p.nextToken()

	leftTable, leftColumn := p.parseQualifiedName()
	if leftTable == "" {
		return nil, fmt.Errorf("ON condition must use qualified column names")
	}

	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	if op == query.OpLike || op == query.OpIn {
		return nil, fmt.Errorf("unsupported join operator %s", op)
	}
	edge.Operator = op

	rightTable, rightColumn := p.parseQualifiedName()
	if rightTable == "" {
		return nil, fmt.Errorf("ON condition must use qualified column names")
	}

	// The ON sides may appear in either order; align them to the edge.
	switch {
	case leftTable == edge.LeftTable && rightTable == edge.RightTable:
		edge.LeftColumn, edge.RightColumn = leftColumn, rightColumn
	case leftTable == edge.RightTable && rightTable == edge.LeftTable:
		edge.LeftColumn, edge.RightColumn = rightColumn, leftColumn
		if op == query.OpLt || op == query.OpLe {
			edge.Operator = flip(op)
		} else if op == query.OpGt || op == query.OpGe {
			edge.Operator = flip(op)
		}
	default:
		return nil, fmt.Errorf("ON condition references tables outside the join: %s, %s", leftTable, rightTable)
	}

	if p.curTok.Type != lexer.EOF {
		return nil, fmt.Errorf("unexpected trailing token %q", p.curTok.Literal)
	}

	return edge, nil
}

func flip(op query.Operator) query.Operator {
	switch op {
	case query.OpLt:
		return query.OpGt
	case query.OpLe:
		return query.OpGe
	case query.OpGt:
		return query.OpLt
	case query.OpGe:
		return query.OpLe
	default:
		return op
	}
}

func parseNumber(lit string) (interface{}, error) {
	if strings.Contains(lit, ".") {
		val, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", lit)
		}
		return val, nil
	}
	val, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", lit)
	}
	return val, nil
}
