package try_test

import (
	"errors"
	"testing"

	"github.com/fitsarchive/calassoc/pkg/utils/try"
)

type fataler struct {
	fatal  [][]any
	helper int
}

func (f *fataler) Fatal(args ...any) {
	f.fatal = append(f.fatal, args)
}

func (f *fataler) Helper() {
	f.helper += 1
}

func TestOrFatal(t *testing.T) {
	for name, testcase := range map[string]struct {
		value     int
		err       error
		thenValue int
		thenFatal bool
	}{
		"without error": {value: 42, thenValue: 42},
		"with error": {
			value: 42, err: errors.New("fake error"),
			thenValue: 0, thenFatal: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			f := &fataler{}
			actual := try.To(testcase.value, testcase.err).OrFatal(f)

			if actual != testcase.thenValue {
				t.Errorf("unmatch: (actual, expected) = (%d, %d)", actual, testcase.thenValue)
			}
			if !testcase.thenFatal {
				if len(f.fatal) != 0 || f.helper != 0 {
					t.Errorf("Fatal or Helper is called: %v, %d", f.fatal, f.helper)
				}
				return
			}
			if len(f.fatal) != 1 || len(f.fatal[0]) != 1 || f.fatal[0][0] != testcase.err {
				t.Errorf("unexpected Fatal: %v", f.fatal)
			}
			if f.helper != 1 {
				t.Errorf("unmatch: Helper (actual, expected) = (%d, %d)", f.helper, 1)
			}
		})
	}
}

func TestGet(t *testing.T) {
	expected := errors.New("fake error")
	v, err := try.To(42, expected).Get()
	if v != 0 || err != expected {
		t.Errorf("unexpected result: (%d, %v)", v, err)
	}

	v, err = try.To(42, nil).Get()
	if v != 42 || err != nil {
		t.Errorf("unexpected result: (%d, %v)", v, err)
	}
}
