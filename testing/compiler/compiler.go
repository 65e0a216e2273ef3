package compiler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/circleci/testdriver/o11y"
)

type Work struct {
	// Name of the produced binary
	Name string
	// Target is the directory the build is run from, usually the module root.
	Target string
	// Source is the main package, relative to Target.
	Source string
	// Environment is added to the build environment, e.g. GOOS=linux
	Environment []string
	// WithCoverage builds a coverage instrumented test binary. The main package must
	// carry a TestRunMain func behind the testrunmain build tag.
	WithCoverage bool

	// Result, if set, receives the binary path once built.
	Result *string
}

type Compiler struct {
	dir     string
	ldFlags string
}

func New() *Compiler {
	tempDir, err := os.MkdirTemp("", "acceptance-tests")
	if err != nil {
		panic(err)
	}

	return &Compiler{
		dir:     tempDir,
		ldFlags: "-w -s",
	}
}

func (c *Compiler) Dir() string {
	return c.dir
}

func (c *Compiler) Cleanup() {
	_ = os.RemoveAll(c.dir)
}

// Compile a binary for testing.
func (c *Compiler) Compile(ctx context.Context, work Work) (path string, err error) {
	ctx, span := o11y.StartSpan(ctx, "compiler: compile")
	defer o11y.End(span, &err)
	span.AddField("name", work.Name)
	span.AddField("source", work.Source)
	span.AddField("with_coverage", work.WithCoverage)
	span.RecordMetric(o11y.Timing("compiler.compile", "with_coverage", "result"))

	cwd, err := filepath.Abs(work.Target)
	if err != nil {
		return "", err
	}

	goos := runtime.GOOS
	for _, e := range work.Environment {
		if strings.HasPrefix(e, "GOOS=") {
			goos = strings.SplitN(e, "=", 2)[1]
		}
	}

	path = binaryPath(work.Name, c.dir, goos)
	args := []string{"build", "-ldflags=" + c.ldFlags, "-o", path, work.Source}
	if work.WithCoverage {
		args = []string{"test", "-c",
			"-cover", "-covermode=atomic", "-coverpkg=./...",
			"-tags", "testrunmain",
			"-o", path,
			work.Source,
		}
	}

	// #nosec - this is fine
	cmd := exec.CommandContext(ctx, goPath(), args...)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Env = append(cmd.Env, work.Environment...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err != nil {
		return "", fmt.Errorf("failed to compile %q: %w", work.Source, err)
	}

	if work.Result != nil {
		*work.Result = path
	}
	return path, nil
}

// CoverageArgs are the leading arguments a coverage instrumented binary must be run
// with so it runs main and writes its profile to reportPath on a clean exit.
func CoverageArgs(reportPath string) []string {
	return []string{"-test.run", "^TestRunMain$", "-test.coverprofile", reportPath, "--"}
}

func goPath() string {
	goroot := os.Getenv("GOROOT")
	if goroot == "" {
		return "go"
	}
	return filepath.Join(goroot, "bin", "go")
}

func binaryPath(name, tempDir, goos string) string {
	path := filepath.Join(tempDir, name)
	if goos == "windows" {
		return path + ".exe"
	}
	return path
}
