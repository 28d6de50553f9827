// Command sqlc regenerates every query package listed in .sqlc.base.yaml.
// Each queries file gets its own sqlc config so the generated code lands
// next to it, in a package named after its directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const defaultConfigName = "sqlc.yaml"

// packageFor derives the Go package and output directory for a queries file:
// internal/modules/vault/service/pg/sql/queries.sql -> ("sql", ".../pg/sql/").
func packageFor(file string) (pkg, dir string, err error) {
	dir, _ = filepath.Split(file)
	pkg = filepath.Base(filepath.Clean(dir))
	if dir == "" || pkg == "." || pkg == string(filepath.Separator) {
		return "", "", errors.Errorf("queries file %q has no parent package directory", file)
	}
	return pkg, dir, nil
}

// buildConfig renders a single-entry sqlc config for file from the shared
// sql.0 section of the base config.
func buildConfig(base *viper.Viper, version, file string) ([]byte, error) {
	pkg, dir, err := packageFor(file)
	if err != nil {
		return nil, err
	}

	entry := viper.New()
	for k, v := range base.AllSettings() {
		if k == "source" {
			continue
		}
		entry.Set(k, v)
	}
	entry.Set("queries", file)
	entry.Set("gen.go.package", pkg)
	entry.Set("gen.go.out", dir)

	out := viper.New()
	out.Set("version", version)
	out.Set("sql", []interface{}{entry.AllSettings()})

	bs, err := yaml.Marshal(out.AllSettings())
	if err != nil {
		return nil, errors.Wrap(err, "marshal config to yaml")
	}
	return bs, nil
}

func writeConfig(content []byte) (string, error) {
	_ = os.Remove(defaultConfigName)
	if err := os.WriteFile(defaultConfigName, content, 0o644); err != nil {
		return "", errors.Wrap(err, "write sqlc.yaml file")
	}
	return defaultConfigName, nil
}

func callSqlc(config string) error {
	cmd := exec.Command("sqlc", "generate", "--file", config)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "call sqlc: %s", string(output))
	}
	return nil
}

func sources(v *viper.Viper) ([]string, error) {
	patterns := v.GetStringSlice("sql.0.source")
	if len(patterns) == 0 {
		return nil, errors.New("has no sql.0.source in config")
	}
	files := make([]string, 0)
	for _, pattern := range patterns {
		f, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "get file glob %s", pattern)
		}
		files = append(files, f...)
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no queries match %v", patterns)
	}
	return files, nil
}

func run(dryRun bool) error {
	v := viper.New()
	v.SetConfigName(".sqlc.base")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrap(err, "read .sqlc.base.yaml")
	}

	files, err := sources(v)
	if err != nil {
		return err
	}
	base := v.Sub("sql.0")
	if base == nil {
		return errors.New("has no sql.0 section in config")
	}

	defer func() { _ = os.Remove(defaultConfigName) }()
	for _, file := range files {
		content, err := buildConfig(base, v.GetString("version"), file)
		if err != nil {
			return errors.Wrapf(err, "build config for %s", file)
		}
		if dryRun {
			fmt.Printf("# %s\n%s\n", file, content)
			continue
		}
		name, err := writeConfig(content)
		if err != nil {
			return err
		}
		if err := callSqlc(name); err != nil {
			return err
		}
		fmt.Printf("%s file complete\n", file)
	}
	fmt.Println("done")
	return nil
}

func main() {
	dryRun := flag.Bool("dry-run", false, "print the generated sqlc configs instead of running sqlc")
	flag.Parse()

	if err := run(*dryRun); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
