package args_test

import (
	"errors"
	"flag"
	"strconv"
	"testing"

	"github.com/fitsarchive/calassoc/pkg/utils/args"
	"github.com/spf13/cobra"
)

type binning int

func asBinning(s string) (binning, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	switch v {
	case 1, 2, 4:
		return binning(v), nil
	}
	return 0, errors.New("binning should be 1, 2 or 4")
}

func (b binning) String() string {
	return strconv.Itoa(int(b))
}

func TestFlag(t *testing.T) {
	for name, testcase := range map[string]struct {
		when      []string
		thenErr   bool
		thenSet   bool
		thenValue binning
	}{
		"acceptable value": {
			when: []string{"-binning", "2"}, thenSet: true, thenValue: 2,
		},
		"unacceptable value": {
			when: []string{"-binning", "3"}, thenErr: true,
		},
		"not given": {
			when: []string{},
		},
	} {
		t.Run(name, func(t *testing.T) {
			testee := args.Parser(asBinning)
			f := flag.NewFlagSet("test", flag.ContinueOnError)
			f.SetOutput(discard{})
			f.Var(testee, "binning", "")

			err := f.Parse(testcase.when)
			if (err != nil) != testcase.thenErr {
				t.Fatalf("unexpected error: %v", err)
			}
			if testee.IsSet() != testcase.thenSet {
				t.Errorf("unmatch: IsSet (actual, expected) = (%v, %v)", testee.IsSet(), testcase.thenSet)
			}
			if testee.Value() != testcase.thenValue {
				t.Errorf("unmatch: Value (actual, expected) = (%d, %d)", testee.Value(), testcase.thenValue)
			}
		})
	}
}

func TestFlag_Cobra(t *testing.T) {
	testee := args.Named("binning", asBinning)
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.SetOut(discard{})
	cmd.SetErr(discard{})
	cmd.Flags().Var(testee, "binning", "")
	cmd.SetArgs([]string{"--binning", "4"})

	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !testee.IsSet() || testee.Value() != 4 {
		t.Errorf("unexpected value: %v (set = %v)", testee.Value(), testee.IsSet())
	}
	if actual := cmd.Flags().Lookup("binning").Value.Type(); actual != "binning" {
		t.Errorf("unmatch: (actual, expected) = (%s, %s)", actual, "binning")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
