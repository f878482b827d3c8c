package process

import (
	"encoding/json"
	"strings"
	"testing"

	"go.yaml.in/yaml/v3"
)

func TestJSONWireNames(t *testing.T) {
	cmd := New("git").WithArg("status").WithoutEnv("GIT_DIR").WithStdout(Piped)
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		`"name":"git"`,
		`"arguments":["status"]`,
		`"inherit_environment":true`,
		`"environment":{"GIT_DIR":null}`,
		`"stdout":"Piped"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %s in %s", want, got)
		}
	}
	for _, absent := range []string{"current_dir", "stdin", "stderr"} {
		if strings.Contains(got, absent) {
			t.Errorf("expected %s to be omitted from %s", absent, got)
		}
	}
}

func TestJSONMissingFieldsTakeDefaults(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`{"name":"ls","arguments":["-l"]}`), &cmd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !cmd.InheritEnvironment {
		t.Error("expected inherit_environment to default to true")
	}
	if cmd.Environment == nil {
		t.Error("expected an empty environment map")
	}

	if err := json.Unmarshal([]byte(`{"name":"ls","inherit_environment":false}`), &cmd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cmd.InheritEnvironment {
		t.Error("expected an explicit false to be kept")
	}
	if len(cmd.Arguments) != 0 {
		t.Errorf("expected a fresh decode, got leftover arguments %v", cmd.Arguments)
	}
}

func TestJSONNonUTF8StringsRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"name", New("/opt/\xffbin"), `"name":{"bytes":"L29wdC//Ymlu"}`},
		{"argument", New("ls").WithArg("a\xfeb"), `"arguments":[{"bytes":"Yf5i"}]`},
		{"value", New("env").WithEnv("K", "v\xfe"), `"environment":{"K":{"bytes":"dv4="}}`},
		{"key", New("env").WithEnv("K\xff", "v").WithoutEnv("Z"), `"environment":[{"key":{"bytes":"S/8="},"value":"v"},{"key":"Z","value":null}]`},
		{"dir", New("pwd").WithCurrentDir("/tmp/\xff"), `"current_dir":{"bytes":"L3RtcC//"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.cmd)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if !strings.Contains(string(data), tc.want) {
				t.Errorf("expected %s in %s", tc.want, data)
			}
			var got Command
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if !got.Equal(tc.cmd) {
				t.Errorf("round trip changed the command:\nwant %#v\ngot  %#v", tc.cmd, got)
			}
		})
	}
}

func TestJSONDecodesTaggedBytes(t *testing.T) {
	doc := `{"name":{"bytes":"L2Jpbi//"},"environment":{"A":{"bytes":"/w=="},"B":"plain","C":null}}`
	var cmd Command
	if err := json.Unmarshal([]byte(doc), &cmd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cmd.Name != "/bin/\xff" {
		t.Errorf("unexpected name %q", cmd.Name)
	}
	if v := cmd.Environment["A"]; v == nil || *v != "\xff" {
		t.Errorf("unexpected A %v", v)
	}
	if v := cmd.Environment["B"]; v == nil || *v != "plain" {
		t.Errorf("unexpected B %v", v)
	}
	if v, ok := cmd.Environment["C"]; !ok || v != nil {
		t.Errorf("expected C to be a removal, got %v, %v", v, ok)
	}
	if !cmd.InheritEnvironment {
		t.Error("expected the inherit default")
	}
}

func TestJSONNullCollections(t *testing.T) {
	var cmd Command
	if err := json.Unmarshal([]byte(`{"name":"x","arguments":null,"environment":null}`), &cmd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cmd.Arguments != nil || cmd.Environment != nil {
		t.Errorf("expected null collections to decode as nil, got %#v %#v", cmd.Arguments, cmd.Environment)
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"arguments":null`) || !strings.Contains(string(data), `"environment":null`) {
		t.Errorf("expected nil collections to encode as null, got %s", data)
	}
}

func TestYAMLNullDisposition(t *testing.T) {
	doc := `
name: cat
stdin: Null
stdout: NULL
stderr: null
`
	var cmd Command
	if err := yaml.Unmarshal([]byte(doc), &cmd); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if cmd.Stdin == nil || *cmd.Stdin != Null {
		t.Errorf("expected stdin Null, got %v", cmd.Stdin)
	}
	if cmd.Stdout == nil || *cmd.Stdout != Null {
		t.Errorf("expected stdout Null, got %v", cmd.Stdout)
	}
	if cmd.Stderr != nil {
		t.Errorf("expected lowercase null to leave stderr unset, got %v", *cmd.Stderr)
	}
}

func TestYAMLEncodesNullQuoted(t *testing.T) {
	data, err := yaml.Marshal(New("cat").WithStdin(Null))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Command
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Stdin == nil || *back.Stdin != Null {
		t.Errorf("expected stdin Null after round trip, got %v\n%s", back.Stdin, data)
	}
}

func TestYAMLRejectsUnknownStdio(t *testing.T) {
	var cmd Command
	if err := yaml.Unmarshal([]byte("name: x\nstdout: tty\n"), &cmd); err == nil {
		t.Fatal("expected an error for an unknown disposition")
	}
}
