package getopt

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	a = &OptionSpec{'a', NoArgument}
	r = &OptionSpec{'r', NoArgument}
	s = &OptionSpec{'s', RequiredArgument}

	specs = []*OptionSpec{a, r, s}
)

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		name     string
		args     []string
		wantOpts []*Option
		wantArgs []string
		wantErr  bool
	}{
		{"no options", []string{"x", "-a"}, nil, []string{"x", "-a"}, false},
		{"chained", []string{"-ar", "x"},
			[]*Option{{Spec: a}, {Spec: r}}, []string{"x"}, false},
		{"argument attached", []string{"-sTERM", "%1"},
			[]*Option{{Spec: s, Argument: "TERM"}}, []string{"%1"}, false},
		{"argument separate", []string{"-a", "-s", "HUP", "12"},
			[]*Option{{Spec: a}, {Spec: s, Argument: "HUP"}}, []string{"12"}, false},
		{"double dash", []string{"-a", "--", "-r"},
			[]*Option{{Spec: a}}, []string{"-r"}, false},
		{"single dash", []string{"-", "-a"}, nil, []string{"-", "-a"}, false},
		{"only options", []string{"-a"}, []*Option{{Spec: a}}, nil, false},
		{"unknown", []string{"-x"}, nil, nil, true},
		{"missing argument", []string{"-s"}, nil, nil, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts, args, err := Parse(tc.args, specs)
			if (err != nil) != tc.wantErr {
				t.Fatalf("got error %v, want error %v", err, tc.wantErr)
			}
			if diff := cmp.Diff(tc.wantOpts, opts); diff != "" {
				t.Errorf("opts (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantArgs, args); diff != "" {
				t.Errorf("args (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHasAndGet(t *testing.T) {
	opts, _, _ := Parse([]string{"-s", "1", "-a", "-s2"}, specs)
	if !Has(opts, 'a') || Has(opts, 'r') {
		t.Errorf("Has reports wrong results")
	}
	if got := Get(opts, 's').Argument; got != "2" {
		t.Errorf("Get returned argument %q, want the last one", got)
	}
}
