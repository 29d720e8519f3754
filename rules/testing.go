//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TestingContext flags context.Background() and context.TODO() in tests.
// t.Context() is canceled when the test ends, which stops timer loops and
// metrics endpoints started by the test.
//
//	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
//
// Use:
//
//	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$ctx := context.TODO()`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead")

	m.Match(
		`$fn(context.Background(), $*args)`,
		`$fn(context.TODO(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead")
}

// GoleakMain flags test mains in packages that start goroutines but do not
// check for leaks.
//
//	func TestMain(m *testing.M) { os.Exit(m.Run()) }
//
// Use:
//
//	func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }
func GoleakMain(m dsl.Matcher) {
	m.Match(`os.Exit($m.Run())`).
		Where(m["m"].Type.Is("*testing.M") &&
			m.File().PkgPath.Matches(`/internal/(audioclient|rtthread|engine/soft)$`)).
		Report("use goleak.VerifyTestMain($m) so leaked timer goroutines fail the run")
}
