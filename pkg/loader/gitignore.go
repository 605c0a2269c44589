package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// gitignoreComment heads the block pv appends to .gitignore.
const gitignoreComment = "# pv local layout state"

// EnsureIgnored makes sure pattern (a path relative to projectDir, such as
// ".planview/layout.db") is listed in the project's .gitignore. Plan files
// are meant to be committed; manual positions are per-user state.
//
// The function is idempotent. It creates .gitignore when missing and keeps
// existing content and formatting.
func EnsureIgnored(projectDir, pattern string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}
	pattern = filepath.ToSlash(strings.TrimPrefix(pattern, "./"))
	gitignorePath := filepath.Join(projectDir, ".gitignore")

	present, err := isIgnored(gitignorePath, pattern)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if present {
		return nil
	}
	return appendToGitignore(gitignorePath, pattern)
}

// isIgnored checks whether a line of the .gitignore file already covers
// pattern, either exactly or through its parent directory.
func isIgnored(path, pattern string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if covers(line, pattern) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// covers reports whether a gitignore line matches pattern.
func covers(line, pattern string) bool {
	line = strings.TrimPrefix(line, "/")
	if line == pattern {
		return true
	}
	dir := strings.TrimSuffix(line, "/")
	dir = strings.TrimSuffix(dir, "/**")
	dir = strings.TrimSuffix(dir, "/*")
	return dir != "" && strings.HasPrefix(pattern, dir+"/")
}

// appendToGitignore appends pattern, creating the file if needed and
// separating it from existing content with a blank line.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = gitignoreComment + "\n" + pattern + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n" + gitignoreComment + "\n" + pattern + "\n"
	}
	_, err = file.WriteString(toWrite)
	return err
}
