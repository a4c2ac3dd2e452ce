package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

type ChangedFile struct {
	Path         string
	ChangedLines []int
}

// GetChangedFiles runs git diff in dir and returns the changed files with their new-side line numbers.
// Paths are relative to dir.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "-U0", "--relative", baseRef, "--")
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff %s failed: %w: %s", baseRef, err, strings.TrimSpace(stderr.String()))
	}

	return parseDiff(output)
}

// chunk header: @@ -oldStart,oldLen +newStart,newLen @@
var chunkHeader = regexp.MustCompile(`^@@ \-\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

func parseDiff(output []byte) ([]ChangedFile, error) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var changes []ChangedFile
	var currentFile *ChangedFile

	flush := func() {
		if currentFile != nil && currentFile.Path != "" {
			changes = append(changes, *currentFile)
		}
		currentFile = nil
	}

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git") {
			flush()
			currentFile = &ChangedFile{ChangedLines: []int{}}
			// a/path/to/file b/path/to/file; the b/ side is the new version
			if parts := strings.Fields(line); len(parts) >= 4 {
				currentFile.Path = strings.TrimPrefix(parts[3], "b/")
			}
			continue
		}

		if currentFile == nil {
			continue
		}

		if strings.HasPrefix(line, "+++ ") {
			target := strings.TrimPrefix(line, "+++ ")
			if target == "/dev/null" {
				// deleted files have no symbols left to report on
				currentFile.Path = ""
				continue
			}
			currentFile.Path = strings.TrimPrefix(target, "b/")
			continue
		}

		if strings.HasPrefix(line, "@@") {
			matches := chunkHeader.FindStringSubmatch(line)
			if len(matches) < 2 {
				continue
			}
			startLine, err := strconv.Atoi(matches[1])
			if err != nil {
				return nil, fmt.Errorf("bad hunk header %q: %w", line, err)
			}
			count := 1
			if matches[2] != "" {
				count, _ = strconv.Atoi(matches[2])
			}

			// a pure deletion touches the line it was removed after
			if count == 0 {
				if startLine > 0 {
					currentFile.ChangedLines = append(currentFile.ChangedLines, startLine)
				}
				continue
			}
			for i := 0; i < count; i++ {
				currentFile.ChangedLines = append(currentFile.ChangedLines, startLine+i)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return changes, nil
}
