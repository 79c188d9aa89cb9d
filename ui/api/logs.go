package api

import (
	"os"
	"runtime"

	"decred.org/dcrwallet/v2/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/nxadm/tail"
)

const (
	// logOffset is how far from the end of the log file reading starts.
	logOffset = 64 * 1024

	defaultLogLines = 200
	maxLogLines     = 2000
)

type logsResponse struct {
	Path  string   `json:"path"`
	Lines []string `json:"lines"`
}

// SetLogFile makes the file at path readable over /api/v1/logs.
func (s *Server) SetLogFile(path string) {
	s.mtx.Lock()
	s.logPath = path
	s.mtx.Unlock()
}

func (s *Server) getLogs(c *fiber.Ctx) error {
	s.mtx.RLock()
	logPath := s.logPath
	s.mtx.RUnlock()
	if logPath == "" {
		return errors.E(errors.NotExist, "no log file configured")
	}

	n := c.QueryInt("lines", defaultLogLines)
	if n <= 0 || n > maxLogLines {
		return badRequest("lines must be between 1 and 2000")
	}

	lines, err := tailLog(logPath, n)
	if err != nil {
		return err
	}
	return c.JSON(logsResponse{Path: logPath, Lines: lines})
}

// tailLog returns at most n of the last lines of the file at path.
func tailLog(path string, n int) ([]string, error) {
	const op errors.Op = "api.tailLog"

	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(op, errors.NotExist, err)
		}
		return nil, errors.E(op, errors.IO, err)
	}

	var offset int64
	if size := fi.Size(); size > logOffset*2 {
		offset = size - logOffset
	}

	t, err := tail.TailFile(path, tail.Config{
		Poll:     runtime.GOOS == "windows",
		Location: &tail.SeekInfo{Offset: offset},
		Logger:   tail.DiscardingLogger,
	})
	if err != nil {
		return nil, errors.E(op, errors.IO, err)
	}
	defer t.Cleanup()

	// The channel closes at EOF since the file isn't followed.
	lines := make([]string, 0, n)
	skip := offset > 0
	for line := range t.Lines {
		if skip {
			// the first line might be truncated.
			skip = false
			continue
		}
		if len(lines) == n {
			lines = append(lines[:0], lines[1:]...)
		}
		lines = append(lines, line.Text)
	}
	return lines, nil
}
