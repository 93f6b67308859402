package config

import (
	"context"
	"os"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/psm/logging"
	"go.viam.com/psm/testutils"
)

func TestWatcher(t *testing.T) {
	logger := logging.NewTestLogger(t)
	path := testutils.WriteFile(t, "psm.json", minimalConfig+"}")

	w, err := NewWatcher(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// Invalid contents never reach the channel.
	test.That(t, os.WriteFile(path, []byte(`{"debug": true`), 0o600), test.ShouldBeNil)
	time.Sleep(2 * ReloadDelay)

	test.That(t, os.WriteFile(path, []byte(minimalConfig+`, "debug": true}`), 0o600), test.ShouldBeNil)
	select {
	case cfg := <-w.Config():
		test.That(t, cfg.Debug, test.ShouldBeTrue)
		test.That(t, cfg.InferenceAlgorithm, test.ShouldEqual, "maximum")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the config change")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(context.Background(), "/does/not/exist/psm.json", logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRequiresRestart(t *testing.T) {
	current := &Config{
		ObjectTopic: "/objects",
		Frames:      map[string]FrameConfig{"base": {Parent: "world"}},
	}

	updated := *current
	updated.Debug = true
	updated.LogConfig = []logging.LoggerPatternConfig{{Pattern: "psm.*", Level: "debug"}}
	test.That(t, RequiresRestart(current, &updated), test.ShouldBeFalse)

	updated.BagFilenames = []string{}
	test.That(t, RequiresRestart(current, &updated), test.ShouldBeFalse)

	updated.Frames = map[string]FrameConfig{"base": {Parent: "world", Translation: Translation{Y: 1}}}
	test.That(t, RequiresRestart(current, &updated), test.ShouldBeTrue)
}
