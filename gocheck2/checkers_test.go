package gocheck2

import (
	"errors"
	"testing"

	. "gopkg.in/check.v1"
)

// Hook up gocheck into go test runner
func Test(t *testing.T) {
	TestingT(t)
}

type CheckersSuite struct{}

var _ = Suite(&CheckersSuite{})

type fakeResult struct {
	entries int64
	err     error
}

func (f *fakeResult) Entries() int64  { return f.entries }
func (f *fakeResult) Validate() error { return f.err }

func testCheck(
	c *C,
	checker Checker,
	expectedResult bool,
	expectedErr string,
	params ...interface{}) {

	actualResult, actualErr := checker.Check(params, nil)
	if actualResult != expectedResult || actualErr != expectedErr {
		c.Fatalf(
			"Check returned (%#v, %#v) rather than (%#v, %#v)",
			actualResult, actualErr, expectedResult, expectedErr)
	}
}

func (s *CheckersSuite) TestIsTrueIsFalse(c *C) {
	c.Assert(true, IsTrue)
	c.Assert(false, IsFalse)
	testCheck(c, IsTrue, false, "Argument to IsTrue must be bool", 1)
}

func (s *CheckersSuite) TestHasEntries(c *C) {
	testCheck(c, HasEntries, true, "", &fakeResult{entries: 3}, 3)
	testCheck(c, HasEntries, true, "", &fakeResult{entries: 3}, int64(3))
	testCheck(c, HasEntries, false, "", &fakeResult{entries: 2}, 3)
	testCheck(c, HasEntries, false, "inconsistent result: broken",
		&fakeResult{entries: 3, err: errors.New("broken")}, 3)

	var nilResult *fakeResult
	testCheck(c, HasEntries, false,
		"First argument to HasEntries must be a non-nil sampled result", nilResult, 0)
	testCheck(c, HasEntries, false,
		"First argument to HasEntries must be a non-nil sampled result", "x", 0)
	testCheck(c, HasEntries, false,
		"Second argument to HasEntries must be an integer", &fakeResult{}, 0.5)
}

func (s *CheckersSuite) TestBetween(c *C) {
	testCheck(c, Between, true, "", 0.5, 0, 1)
	testCheck(c, Between, true, "", int64(10), 10, 20.0)
	testCheck(c, Between, false, "", -1.0, 0, 1)
	testCheck(c, Between, false, "Arguments to Between must be numbers", "a", 0, 1)
}
