package specfile

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/kbukum/procspec/errors"
	"github.com/kbukum/procspec/process"
)

// Encode renders cmd in the given format.
func Encode(cmd process.Command, f Format) ([]byte, error) {
	return marshal(cmd, f)
}

// Decode parses a Command. Errors are INVALID_SPEC.
func Decode(data []byte, f Format) (process.Command, error) {
	var cmd process.Command
	if err := unmarshal(data, &cmd, f); err != nil {
		return process.Command{}, errors.InvalidSpec(f.String()+" document", err)
	}
	return cmd, nil
}

// Load reads a Command from a .json, .yaml or .yml file.
func Load(path string) (process.Command, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return process.Command{}, errors.InvalidSpec(path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return process.Command{}, err
	}
	var cmd process.Command
	if err := unmarshal(data, &cmd, f); err != nil {
		return process.Command{}, errors.InvalidSpec(path, err)
	}
	return cmd, nil
}

// Save writes cmd to path in the format its extension names.
func Save(path string, cmd process.Command) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(cmd, f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ApplyEnvFile sets every variable of a dotenv file on cmd. Existing entries
// with the same key are replaced.
func ApplyEnvFile(cmd *process.Command, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	cmd.SetEnvs(vars)
	return nil
}
