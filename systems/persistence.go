package systems

import (
	"encoding/json"

	"github.com/automoto/netsnap/shared/logging"
	"github.com/quasilyte/gdata"
	"go.uber.org/zap"
)

const endpointKey = "endpoint"

// SavedEndpoint is the last server the player hosted on or joined
type SavedEndpoint struct {
	Addr      string `json:"addr"`
	Transport string `json:"transport"`
}

var gdataManager *gdata.Manager

var logger = logging.Nop()

// SetLogger sets the logger used by the demo systems.
func SetLogger(l *zap.SugaredLogger) {
	logger = logging.OrNop(l)
}

// InitPersistence opens the gdata store for appName.
func InitPersistence(appName string) error {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		logger.Warnw("could not initialize persistence", "error", err)
		return err
	}
	gdataManager = m
	return nil
}

// LoadEndpoint returns the saved endpoint, or nil when there is none.
func LoadEndpoint() *SavedEndpoint {
	if gdataManager == nil {
		return nil
	}

	data, err := gdataManager.LoadItem(endpointKey)
	if err != nil {
		logger.Warnw("could not load endpoint", "error", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var ep SavedEndpoint
	if err := json.Unmarshal(data, &ep); err != nil {
		logger.Warnw("could not parse saved endpoint", "error", err)
		return nil
	}
	return &ep
}

// SaveEndpoint remembers ep for the next launch.
func SaveEndpoint(ep SavedEndpoint) error {
	if gdataManager == nil {
		return nil
	}

	data, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	if err := gdataManager.SaveItem(endpointKey, data); err != nil {
		logger.Warnw("could not save endpoint", "error", err)
		return err
	}
	return nil
}
