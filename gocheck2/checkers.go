// Extensions to the go-check unittest framework.
//
// NOTE: see https://github.com/go-check/check/pull/6 for reasons why these
// checkers live here.
package gocheck2

import (
	"fmt"
	"reflect"

	. "gopkg.in/check.v1"
)

// -----------------------------------------------------------------------
// IsTrue / IsFalse checker.

type isBoolValueChecker struct {
	*CheckerInfo
	expected bool
}

func (checker *isBoolValueChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := params[0].(bool)
	if !ok {
		return false, "Argument to " + checker.Name + " must be bool"
	}

	return obtained == checker.expected, ""
}

// The IsTrue checker verifies that the obtained value is true.
//
// For example:
//
//	c.Assert(value, IsTrue)
var IsTrue Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsTrue", Params: []string{"obtained"}},
	true,
}

// The IsFalse checker verifies that the obtained value is false.
//
// For example:
//
//	c.Assert(value, IsFalse)
var IsFalse Checker = &isBoolValueChecker{
	&CheckerInfo{Name: "IsFalse", Params: []string{"obtained"}},
	false,
}

// -----------------------------------------------------------------------
// HasEntries checker.

// Anything shaped like a benchmark result: a sample count plus a
// consistency check over its per-sample arrays.
type sampled interface {
	Entries() int64
	Validate() error
}

type hasEntriesChecker struct {
	*CheckerInfo
}

func (checker *hasEntriesChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	obtained, ok := params[0].(sampled)
	if ok {
		rv := reflect.ValueOf(obtained)
		ok = rv.Kind() != reflect.Ptr || !rv.IsNil()
	}
	if !ok {
		return false, "First argument to HasEntries must be a non-nil sampled result"
	}
	expected := reflect.ValueOf(params[1])
	switch expected.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
	default:
		return false, "Second argument to HasEntries must be an integer"
	}
	if err := obtained.Validate(); err != nil {
		return false, fmt.Sprintf("inconsistent result: %v", err)
	}
	return obtained.Entries() == expected.Int(), ""
}

// The HasEntries checker verifies that a result is internally consistent
// and holds exactly the expected number of samples.
//
// For example:
//
//	c.Assert(data, HasEntries, 3)
var HasEntries Checker = &hasEntriesChecker{
	&CheckerInfo{Name: "HasEntries", Params: []string{"obtained", "entries"}},
}

// -----------------------------------------------------------------------
// Between checker.

type betweenChecker struct {
	*CheckerInfo
}

func toFloat(v interface{}) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func (checker *betweenChecker) Check(
	params []interface{},
	names []string) (
	result bool,
	error string) {

	v, ok1 := toFloat(params[0])
	lo, ok2 := toFloat(params[1])
	hi, ok3 := toFloat(params[2])
	if !ok1 || !ok2 || !ok3 {
		return false, "Arguments to Between must be numbers"
	}
	return lo <= v && v <= hi, ""
}

// The Between checker verifies lo <= obtained <= hi.
//
// For example:
//
//	c.Assert(overhead, Between, 0.0, 1.0)
var Between Checker = &betweenChecker{
	&CheckerInfo{Name: "Between", Params: []string{"obtained", "lo", "hi"}},
}
