package session

import (
	"os"
	"path/filepath"
	"strings"

	"codesense/internal/core/config"
	"codesense/internal/core/errors"
	"codesense/internal/shared/util"
)

const (
	mainSourceDir = "src/main/java"
	testSourceDir = "src/test/java"
)

// Project describes the Java build rooted at Root.
type Project struct {
	Root      string
	BuildTool string
}

// DetectProject resolves the project containing path. The build tool is
// taken from preferred unless it is "auto", in which case the markers in the
// root decide. A root without markers has no build tool.
func DetectProject(path, preferred string) (Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Project{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "project path not found"), errors.CtxPath, path)
	}
	start := path
	if !info.IsDir() {
		start = filepath.Dir(path)
	}
	root, err := config.DetectProjectRoot([]string{start})
	if err != nil {
		return Project{}, errors.Wrap(err, errors.CodeSessionFailure, "detect project root")
	}

	p := Project{Root: root, BuildTool: strings.ToLower(strings.TrimSpace(preferred))}
	if p.BuildTool == "" || p.BuildTool == config.BuildToolAuto {
		p.BuildTool = detectBuildTool(root)
	}
	return p, nil
}

func detectBuildTool(root string) string {
	switch {
	case exists(filepath.Join(root, "pom.xml")):
		return config.BuildToolMaven
	case exists(filepath.Join(root, "build.gradle")), exists(filepath.Join(root, "build.gradle.kts")):
		return config.BuildToolGradle
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Command returns the executable for the build tool, preferring a wrapper
// script checked into the project.
func (p Project) Command() (string, error) {
	switch p.BuildTool {
	case config.BuildToolMaven:
		if wrapper := filepath.Join(p.Root, "mvnw"); exists(wrapper) {
			return wrapper, nil
		}
		return "mvn", nil
	case config.BuildToolGradle:
		if wrapper := filepath.Join(p.Root, "gradlew"); exists(wrapper) {
			return wrapper, nil
		}
		return "gradle", nil
	}
	return "", errors.AddContext(errors.New(errors.CodeNotSupported, "no build tool detected for project"), errors.CtxPath, p.Root)
}

// TestArgs builds the arguments that run one test class, or every test when
// name is empty.
func (p Project) TestArgs(name string) []string {
	switch p.BuildTool {
	case config.BuildToolMaven:
		if name == "" {
			return []string{"test"}
		}
		return []string{"test", "-Dtest=" + name}
	case config.BuildToolGradle:
		if name == "" {
			return []string{"test"}
		}
		return []string{"test", "--tests", name}
	}
	return nil
}

// Resolve makes path absolute against the project root.
func (p Project) Resolve(path string) string {
	return config.ResolveRelative(p.Root, path)
}

// counterpart maps a main source file to its test and back, following the
// standard Maven/Gradle layout and the FooTest naming convention.
func (p Project) counterpart(path string) (string, error) {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeInvalidArgument, "path outside project"), errors.CtxPath, path)
	}
	rel = filepath.ToSlash(rel)
	ext := filepath.Ext(rel)
	stem := strings.TrimSuffix(rel, ext)

	switch {
	case util.HasPathPrefix(rel, testSourceDir):
		stem = strings.TrimPrefix(stem, testSourceDir+"/")
		for _, suffix := range []string{"Tests", "Test", "IT"} {
			if strings.HasSuffix(stem, suffix) && stem != suffix {
				return filepath.Join(p.Root, filepath.FromSlash(mainSourceDir+"/"+strings.TrimSuffix(stem, suffix)+ext)), nil
			}
		}
	case util.HasPathPrefix(rel, mainSourceDir):
		stem = strings.TrimPrefix(stem, mainSourceDir+"/")
		return filepath.Join(p.Root, filepath.FromSlash(testSourceDir+"/"+stem+"Test"+ext)), nil
	}
	return "", errors.AddContext(errors.New(errors.CodeNotFound, "no test counterpart for path"), errors.CtxPath, path)
}
