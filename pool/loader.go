package pool

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dudk/clip/log"
)

// supported file extensions.
var extensions = map[string]struct{}{
	".wav": {},
	".mp3": {},
}

// Preload acquires every supported file found in paths and their
// subdirectories. Files which can't be decoded are skipped. Paths of
// acquired files are returned, each must be released.
func (p *Pool) Preload(logger log.Logger, paths ...string) []string {
	if logger == nil {
		logger = log.GetLogger()
	}
	var loaded []string
	for _, path := range paths {
		files, err := os.ReadDir(path)
		if err != nil {
			logger.WithFields(logrus.Fields{"path": path}).Warn(err)
			continue
		}
		for _, file := range files {
			full := filepath.Join(path, file.Name())
			if file.IsDir() {
				loaded = append(loaded, p.Preload(logger, full)...)
				continue
			}
			if _, ok := extensions[strings.ToLower(filepath.Ext(file.Name()))]; !ok {
				continue
			}
			if _, err := p.AcquireFile(full); err != nil {
				logger.WithFields(logrus.Fields{"file": full}).Warn(err)
				continue
			}
			loaded = append(loaded, full)
		}
	}
	return loaded
}
