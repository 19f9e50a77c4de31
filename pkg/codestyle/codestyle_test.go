// Package codestyle_test enforces repository-wide conventions that linters do not cover.
package codestyle_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxInterfaceMethods bounds interface size. Larger interfaces are hard to fake in tests.
const maxInterfaceMethods = 5

// grabBagFilenames maps file names without a domain to the reason they are rejected.
var grabBagFilenames = map[string]string{
	"types.go":     "types belong next to the code that uses them",
	"utils.go":     "helpers belong in the file that owns their domain",
	"helpers.go":   "helpers belong in the file that owns their domain",
	"common.go":    "if everything is common, nothing is",
	"constants.go": "constants belong next to the code that uses them",
	"errors.go":    "sentinel errors belong next to the functions returning them",
}

// sourceFile is a parsed non-test Go file.
type sourceFile struct {
	rel  string
	file *ast.File
}

// sourceTree parses every non-test, non-generated Go file of the module once.
func sourceTree(t *testing.T) []sourceFile {
	t.Helper()

	root := moduleRoot(t)
	fset := token.NewFileSet()

	var files []sourceFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && ignoredDir(d.Name()) {
				return filepath.SkipDir
			}

			return nil
		}

		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		parsed, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return err
		}

		if ast.IsGenerated(parsed) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, sourceFile{rel: filepath.ToSlash(rel), file: parsed})

		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)

	return files
}

// moduleRoot walks up from the working directory to the directory holding go.mod.
func moduleRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, statErr := os.Stat(filepath.Join(dir, "go.mod")); statErr == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "no go.mod above the working directory")

		dir = parent
	}
}

// ignoredDir mirrors the go tool: "_" and "." prefixes and testdata hold no module code.
func ignoredDir(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") ||
		name == "testdata" || name == "vendor"
}

// stutters reports whether exported repeats the package name at a word boundary,
// returning the name callers should use instead.
//
//	delta.DeltaManifest  -> "Manifest", true
//	persist.Persister    -> "", false (no word boundary)
//	config.Config        -> "", false (exact match)
func stutters(pkg, exported string) (string, bool) {
	prefix := strings.ToUpper(pkg[:1]) + pkg[1:]

	rest, ok := strings.CutPrefix(exported, prefix)
	if !ok || rest == "" {
		return "", false
	}

	first := rune(rest[0])
	if !unicode.IsUpper(first) && !unicode.IsDigit(first) {
		return "", false
	}

	return rest, true
}

func TestStutters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pkg, name, want string
		ok              bool
	}{
		{"delta", "DeltaManifest", "Manifest", true},
		{"corpus", "Corpus2", "2", true},
		{"persist", "Persister", "", false},
		{"config", "Config", "", false},
		{"reconstruct", "State", "", false},
	}

	for _, tt := range tests {
		got, ok := stutters(tt.pkg, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestNoGrabBagFilenames(t *testing.T) {
	t.Parallel()

	for _, src := range sourceTree(t) {
		if reason, banned := grabBagFilenames[filepath.Base(src.rel)]; banned {
			t.Errorf("%s: rename by domain, %s", src.rel, reason)
		}
	}
}

func TestNoStutteringTypes(t *testing.T) {
	t.Parallel()

	for _, src := range sourceTree(t) {
		pkg := src.file.Name.Name

		for name := range typeSpecs(src.file) {
			if !ast.IsExported(name) {
				continue
			}

			if rest, bad := stutters(pkg, name); bad {
				t.Errorf("%s: %s.%s stutters, call it %s.%s", src.rel, pkg, name, pkg, rest)
			}
		}
	}
}

func TestNoFatInterfaces(t *testing.T) {
	t.Parallel()

	for _, src := range sourceTree(t) {
		for name, spec := range typeSpecs(src.file) {
			iface, ok := spec.Type.(*ast.InterfaceType)
			if !ok {
				continue
			}

			methods := 0

			for _, field := range iface.Methods.List {
				if _, isFunc := field.Type.(*ast.FuncType); isFunc {
					methods++
				}
			}

			if methods > maxInterfaceMethods {
				t.Errorf("%s: interface %s has %d methods (max %d), split it",
					src.rel, name, methods, maxInterfaceMethods)
			}
		}
	}
}

func TestPackagesAreDocumented(t *testing.T) {
	t.Parallel()

	documented := make(map[string]bool)

	for _, src := range sourceTree(t) {
		dir := filepath.Dir(src.rel)
		documented[dir] = documented[dir] || src.file.Doc != nil
	}

	for dir, ok := range documented {
		assert.True(t, ok, "package in %s has no package comment", dir)
	}
}

func TestNoStdlibLogImports(t *testing.T) {
	t.Parallel()

	for _, src := range sourceTree(t) {
		if importsPath(src.file, "log") {
			t.Errorf("%s: imports \"log\"; accept a *slog.Logger so records carry trace and version attributes", src.rel)
		}
	}
}

func TestExitOnlyFromMain(t *testing.T) {
	t.Parallel()

	for _, src := range sourceTree(t) {
		if src.file.Name.Name == "main" {
			continue
		}

		ast.Inspect(src.file, func(n ast.Node) bool {
			sel, ok := n.(*ast.SelectorExpr)
			if ok && sel.Sel.Name == "Exit" {
				if pkg, isIdent := sel.X.(*ast.Ident); isIdent && pkg.Name == "os" {
					t.Errorf("%s: os.Exit outside package main; return an error instead", src.rel)
				}
			}

			return true
		})
	}
}

// typeSpecs indexes the type declarations of a file by name.
func typeSpecs(f *ast.File) map[string]*ast.TypeSpec {
	specs := make(map[string]*ast.TypeSpec)

	for _, decl := range f.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}

		for _, spec := range gen.Specs {
			if ts, isType := spec.(*ast.TypeSpec); isType {
				specs[ts.Name.Name] = ts
			}
		}
	}

	return specs
}

func importsPath(f *ast.File, path string) bool {
	return slices.ContainsFunc(f.Imports, func(imp *ast.ImportSpec) bool {
		return strings.Trim(imp.Path.Value, `"`) == path
	})
}
