package hash_test

import (
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/hash"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Values(t *testing.T) {
	type table struct {
		name string
		a    []any
		b    []any
	}

	tt := []table{
		{
			name: "mixed",
			a:    []any{1, []int{2}, "three"},
			b:    []any{1, "three", []int{2}},
		},
		{
			name: "reversed",
			a:    []any{"a", "b", "c", 4, 5.5},
			b:    []any{5.5, 4, "c", "b", "a"},
		},
		{
			name: "nested",
			a:    []any{map[string]any{"x": []int{1, 2}}, true, nil},
			b:    []any{nil, true, map[string]any{"x": []int{1, 2}}},
		},
	}

	t.Log("Given the need to hash a set of values in any order.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				a, err := hash.Values(tst.a...)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to hash the values: %v", failed, testID, err)
				}

				b, err := hash.Values(tst.b...)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to hash the permutation: %v", failed, testID, err)
				}

				if a != b {
					t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, b)
					t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, a)
					t.Fatalf("\t%s\tTest %d:\tShould get the same digest for a permutation.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the same digest for a permutation.", success, testID)

				if len(a) != hash.Size {
					t.Fatalf("\t%s\tTest %d:\tShould get a %d character digest, got %d.", failed, testID, hash.Size, len(a))
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Deterministic(t *testing.T) {
	const exp = "b2213295d564916f89a6a42455567c87c3f480fcd7a1c15e220f17d7169a790b"

	for i := 0; i < 3; i++ {
		got, err := hash.Values("foo")
		if err != nil {
			t.Fatalf("Should be able to hash a string: %s", err)
		}

		if got != exp {
			t.Logf("got: %s", got)
			t.Logf("exp: %s", exp)
			t.Fatalf("Should get the same digest on every call.")
		}
	}
}

func Test_Fields(t *testing.T) {
	a, err := hash.Fields(hash.Field{Name: "nonce", Value: 3}, hash.Field{Name: "difficulty", Value: 4})
	if err != nil {
		t.Fatalf("Should be able to hash fields: %s", err)
	}

	b, err := hash.Fields(hash.Field{Name: "difficulty", Value: 4}, hash.Field{Name: "nonce", Value: 3})
	if err != nil {
		t.Fatalf("Should be able to hash fields: %s", err)
	}

	if a != b {
		t.Fatalf("Should get the same digest regardless of field order.")
	}

	swapped, err := hash.Fields(hash.Field{Name: "nonce", Value: 4}, hash.Field{Name: "difficulty", Value: 3})
	if err != nil {
		t.Fatalf("Should be able to hash fields: %s", err)
	}

	if a == swapped {
		t.Fatalf("Should get a different digest when field values trade places.")
	}

	untagged, err := hash.Values(3, 4)
	if err != nil {
		t.Fatalf("Should be able to hash values: %s", err)
	}

	untaggedSwapped, err := hash.Values(4, 3)
	if err != nil {
		t.Fatalf("Should be able to hash values: %s", err)
	}

	if untagged != untaggedSwapped {
		t.Fatalf("Should get the same digest for untagged values that trade places.")
	}
}

func Test_Unsupported(t *testing.T) {
	if _, err := hash.Values(make(chan int)); err == nil {
		t.Fatalf("Should not be able to hash a value with no JSON form.")
	}
}
