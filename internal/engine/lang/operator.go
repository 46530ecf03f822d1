// # internal/engine/lang/operator.go
package lang

import (
	"math"
	"math/bits"
	"strconv"
)

// Operator is one of the four arithmetic keywords.
type Operator int

const (
	OpPlus Operator = iota
	OpMoins
	OpMultiplier
	OpDiviser
)

type operatorInfo struct {
	keyword string
	symbol  string
}

var operators = map[Operator]operatorInfo{
	OpPlus:       {keyword: "plus", symbol: "+"},
	OpMoins:      {keyword: "moins", symbol: "-"},
	OpMultiplier: {keyword: "multiplier", symbol: "*"},
	OpDiviser:    {keyword: "diviser", symbol: "/"},
}

var operatorsByKeyword = map[string]Operator{
	"plus":       OpPlus,
	"moins":      OpMoins,
	"multiplier": OpMultiplier,
	"diviser":    OpDiviser,
}

// LookupOperator resolves a keyword such as "diviser".
func LookupOperator(keyword string) (Operator, bool) {
	op, ok := operatorsByKeyword[keyword]
	return op, ok
}

// OperatorKeywords lists the keywords in declaration order.
func OperatorKeywords() []string {
	return []string{"plus", "moins", "multiplier", "diviser"}
}

func (o Operator) Keyword() string { return operators[o].keyword }

// Symbol is the host-language rendering of the operator.
func (o Operator) Symbol() string { return operators[o].symbol }

func (o Operator) String() string { return o.Keyword() }

// Apply evaluates left op right. Division is carried out in float64 so a zero
// divisor yields ±Inf or NaN instead of an error. Integer results that do not
// fit in int64 fall back to float64, the way the JavaScript host computes them.
func (o Operator) Apply(left, right int64) Number {
	switch o {
	case OpPlus:
		if sum, ok := addInt64(left, right); ok {
			return IntNumber(sum)
		}
		return FloatNumber(float64(left) + float64(right))
	case OpMoins:
		if right != math.MinInt64 {
			if diff, ok := addInt64(left, -right); ok {
				return IntNumber(diff)
			}
		}
		return FloatNumber(float64(left) - float64(right))
	case OpMultiplier:
		if prod, ok := mulInt64(left, right); ok {
			return IntNumber(prod)
		}
		return FloatNumber(float64(left) * float64(right))
	default:
		return FloatNumber(float64(left) / float64(right))
	}
}

func addInt64(a, b int64) (int64, bool) {
	sum, _ := bits.Add64(uint64(a), uint64(b), 0)
	s := int64(sum)
	// Overflow iff both operands share a sign the result does not.
	if (a >= 0) == (b >= 0) && (s >= 0) != (a >= 0) {
		return 0, false
	}
	return s, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(absUint64(a), absUint64(b))
	negative := (a < 0) != (b < 0)
	if hi != 0 {
		return 0, false
	}
	if negative {
		if lo > 1<<63 {
			return 0, false
		}
		return int64(-lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

func absUint64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// Number is the result of an arithmetic statement.
type Number struct {
	isFloat bool
	i       int64
	f       float64
}

func IntNumber(v int64) Number     { return Number{i: v} }
func FloatNumber(v float64) Number { return Number{isFloat: true, f: v} }

func (n Number) Float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func (n Number) IsInf() bool { return n.isFloat && math.IsInf(n.f, 0) }
func (n Number) IsNaN() bool { return n.isFloat && math.IsNaN(n.f) }

// String renders integers exactly and floats in shortest form ("+Inf", "NaN").
func (n Number) String() string {
	if !n.isFloat {
		return strconv.FormatInt(n.i, 10)
	}
	return strconv.FormatFloat(n.f, 'f', -1, 64)
}
