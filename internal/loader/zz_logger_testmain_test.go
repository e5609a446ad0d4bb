package loader

import (
	"os"
	"testing"

	"github.com/scenestream/sceneviewer/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithFileConfig("error", logger.FileConfig{}, false)
	os.Exit(m.Run())
}
