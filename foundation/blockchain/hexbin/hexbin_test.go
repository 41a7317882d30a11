package hexbin_test

import (
	"strconv"
	"testing"

	"github.com/ardanlabs/powchain/foundation/blockchain/hexbin"
)

func Test_ToBinary(t *testing.T) {
	type table struct {
		name string
		hex  string
		exp  string
	}

	tt := []table{
		{name: "zero", hex: "0", exp: "0000"},
		{name: "one", hex: "1", exp: "0001"},
		{name: "leading", hex: "0f", exp: "00001111"},
		{name: "upper", hex: "A5", exp: "10100101"},
		{name: "empty", hex: "", exp: ""},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			got, err := hexbin.ToBinary(tst.hex)
			if err != nil {
				t.Fatalf("Test %s:\tShould be able to convert the hex: %s", tst.name, err)
			}

			if got != tst.exp {
				t.Logf("Test %s:\tgot: %s", tst.name, got)
				t.Logf("Test %s:\texp: %s", tst.name, tst.exp)
				t.Fatalf("Test %s:\tShould get back the right binary digits.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_RoundTripNumber(t *testing.T) {
	const number = 789

	bin, err := hexbin.ToBinary(strconv.FormatInt(number, 16))
	if err != nil {
		t.Fatalf("Should be able to convert the hex: %s", err)
	}

	got, err := strconv.ParseInt(bin, 2, 64)
	if err != nil {
		t.Fatalf("Should be able to parse the binary digits: %s", err)
	}

	if got != number {
		t.Logf("got: %d", got)
		t.Logf("exp: %d", number)
		t.Fatalf("Should get back the original number.")
	}
}

func Test_InvalidHex(t *testing.T) {
	if _, err := hexbin.ToBinary("00zz"); err == nil {
		t.Fatalf("Should not be able to convert a non hex string.")
	}
}

func Test_HasLeadingZeros(t *testing.T) {
	type table struct {
		name string
		hex  string
		n    uint
		exp  bool
	}

	tt := []table{
		{name: "none-required", hex: "f", n: 0, exp: true},
		{name: "exact", hex: "0f", n: 4, exp: true},
		{name: "bit-level", hex: "1f", n: 3, exp: true},
		{name: "bit-level-miss", hex: "1f", n: 4, exp: false},
		{name: "too-short", hex: "00", n: 9, exp: false},
		{name: "malformed", hex: "0g", n: 1, exp: false},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			if got := hexbin.HasLeadingZeros(tst.hex, tst.n); got != tst.exp {
				t.Logf("Test %s:\tgot: %v", tst.name, got)
				t.Logf("Test %s:\texp: %v", tst.name, tst.exp)
				t.Fatalf("Test %s:\tShould get the right leading zero result.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}
