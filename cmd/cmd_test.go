package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/mabhi256/jshim/internal/classfile"
	"github.com/mabhi256/jshim/internal/rewrite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classBytes(t *testing.T, name, super string) []byte {
	t.Helper()
	cf, err := classfile.NewClass(name, super, classfile.DefaultMajorVersion)
	require.NoError(t, err)
	data, err := cf.Encode()
	require.NoError(t, err)
	return data
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func writeLibrary(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	entry, err := w.Create("com/lib/BaseFragment.class")
	require.NoError(t, err)
	_, err = entry.Write(classBytes(t, "com.lib.BaseFragment", rewrite.AndroidFragmentClassname))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		transformInputs, transformLibraries, inspectLibraries = nil, nil, nil
		transformOutput, configPath, reportPath, transformWorkers = "", "", "", 0
		logFile, verbose = "", false
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func superOf(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cf, err := classfile.ParseBytes(data)
	require.NoError(t, err)
	super, _ := cf.SuperName()
	return super
}

func TestTransformCommand(t *testing.T) {
	work := t.TempDir()
	classes := filepath.Join(work, "classes")
	writeFile(t, filepath.Join(classes, "com/app/Main.class"), classBytes(t, "com.app.Main", rewrite.AndroidActivityClassname))
	writeFile(t, filepath.Join(classes, "com/app/Page.class"), classBytes(t, "com.app.Page", "com.lib.BaseFragment"))
	writeFile(t, filepath.Join(classes, "com/app/layout.xml"), []byte("<layout/>"))

	library := filepath.Join(work, "lib.jar")
	writeLibrary(t, library)

	output := filepath.Join(work, "out")
	configFile := filepath.Join(work, "rules.toml")
	writeFile(t, configFile, []byte("workers = 2\n"))

	report := filepath.Join(work, "report.json")
	out, err := execute(t, "transform", "-i", classes, "-l", library, "-o", output, "-c", configFile, "--report", report)
	require.NoError(t, err)
	assert.Contains(t, out, "com.app.Page")
	assert.FileExists(t, report)

	root := filepath.Join(output, "classes", "com", "app")
	assert.Equal(t, rewrite.MockActivityClassname, superOf(t, filepath.Join(root, "Main.class")))
	assert.Equal(t, rewrite.ContainerFragmentClassname, superOf(t, filepath.Join(root, "Page.class")))
	assert.Equal(t, "com.lib.BaseFragment_", superOf(t, filepath.Join(root, "Page_.class")))

	layout, err := os.ReadFile(filepath.Join(root, "layout.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<layout/>", string(layout))
}

func TestTransformCommand_Failures(t *testing.T) {
	work := t.TempDir()
	classes := filepath.Join(work, "classes")
	writeFile(t, filepath.Join(classes, "A.class"), classBytes(t, "A", "B"))
	writeFile(t, filepath.Join(classes, "B.class"), classBytes(t, "B", "A"))

	_, err := execute(t, "transform", "-i", classes, "-o", filepath.Join(work, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 classes failed")
}

func TestTransformCommand_ClosesLogFileOnFailure(t *testing.T) {
	work := t.TempDir()
	classes := filepath.Join(work, "classes")
	writeFile(t, filepath.Join(classes, "A.class"), classBytes(t, "A", "B"))
	writeFile(t, filepath.Join(classes, "B.class"), classBytes(t, "B", "A"))
	logPath := filepath.Join(work, "jshim.log")

	_, err := execute(t, "transform", "-i", classes, "-o", filepath.Join(work, "out"), "--log-file", logPath)
	require.Error(t, err)
	assert.FileExists(t, logPath)
	assert.Nil(t, logCloser, "log file must be closed even when the command fails")
}

func TestTransformCommand_RequiresInput(t *testing.T) {
	_, err := execute(t, "transform", "-o", t.TempDir())
	assert.Error(t, err)
}

func TestInspectCommand(t *testing.T) {
	work := t.TempDir()
	library := filepath.Join(work, "lib.jar")
	writeLibrary(t, library)
	classFile := filepath.Join(work, "Page.class")
	writeFile(t, classFile, classBytes(t, "com.app.Page", "com.lib.BaseFragment"))

	out, err := execute(t, "inspect", classFile, "-l", library)
	require.NoError(t, err)
	assert.Contains(t, out, "com.app.Page")
	assert.Contains(t, out, "(member)")
	assert.Contains(t, out, "com/app/Page_.class")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestInspectCommand_SpecialCase(t *testing.T) {
	work := t.TempDir()
	library := filepath.Join(work, "lib.jar")
	writeLibrary(t, library)
	classFile := filepath.Join(work, "Page.class")
	writeFile(t, classFile, classBytes(t, "com.app.Page", "com.lib.BaseFragment"))
	configFile := filepath.Join(work, "rules.toml")
	writeFile(t, configFile, []byte("[[special]]\nclass = \"com.app.Page\"\nstrategy = \"keep\"\n"))

	out, err := execute(t, "inspect", classFile, "-l", library, "-c", configFile)
	require.NoError(t, err)
	assert.Contains(t, out, "com.lib.BaseFragment")
	assert.NotContains(t, out, "(member)")
	assert.Contains(t, out, "keep")
}
