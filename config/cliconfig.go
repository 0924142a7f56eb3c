package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fsnotify/fsnotify"
)

var (
	errNoFileToWatch = errors.New("no file to watch")
	errEmptyConfig   = errors.New("config file empty on change")
)

// CLIConfig represents the Command Line Args config
type CLIConfig struct {
	ConfigPath             string
	MigrationSource        string
	StopOnConfigChange     bool
	DoNotWatchConfigChange bool
	callbacks              []func()
	watcherStarted         bool
	watcherStarterMutex    sync.Mutex
	watcher                *fsnotify.Watcher
}

// IsMigrationEnabled returns whether migration is enabled
func (conf *CLIConfig) IsMigrationEnabled() bool {
	return len(conf.MigrationSource) > 0
}

// NotifyOnConfigFileChange registers a callback function for changes to ConfigPath; it calls the `callback` when a change is detected
func (conf *CLIConfig) NotifyOnConfigFileChange(callback func()) {
	if conf.DoNotWatchConfigChange {
		return
	}
	conf.callbacks = append(conf.callbacks, callback)
	if !conf.watcherStarted {
		conf.startConfigWatcher()
	}
}

// IsConfigWatcherStarted returns whether config watcher is running
func (conf *CLIConfig) IsConfigWatcherStarted() bool {
	return conf.watcherStarted
}

// StopWatcher stops any watcher if started for CLI ConfigPath file change
func (conf *CLIConfig) StopWatcher() {
	if conf.watcherStarted {
		log.Print("closing config watcher")
		conf.watcher.Close()
	}
}

func (conf *CLIConfig) startConfigWatcher() {
	conf.watcherStarterMutex.Lock()
	defer conf.watcherStarterMutex.Unlock()
	watcher, err := createNewWatcher()
	if err != nil {
		log.Error().Err(err).Msg("could not setup watcher")
		return
	}
	conf.watcher = watcher
	filename, err := getFileToWatch(conf.ConfigPath)
	if err != nil {
		log.Error().Err(err).Msg("could not get file to watch")
		return
	}
	configFile := filepath.Clean(filename)
	// watch the directory rather than the file to survive renames and atomic saves
	configDir, _ := filepath.Split(configFile)
	filehash, err := getFileHash(configFile)
	if err != nil {
		log.Error().Err(err).Msg("could not hash config file")
		return
	}
	watcher.Add(configDir)
	go conf.watchWorker(configFile, filehash)
	conf.watcherStarted = true
}

func (conf *CLIConfig) watchWorker(configFile, lastHash string) {
	const writeOrCreateMask = fsnotify.Write | fsnotify.Create
	for {
		select {
		case event, ok := <-conf.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != configFile {
				continue
			}
			if event.Op&fsnotify.Remove != 0 {
				return
			}
			if event.Op&writeOrCreateMask != 0 {
				lastHash = conf.fireCallbacksIfChanged(configFile, lastHash)
			}
		case err, ok := <-conf.watcher.Errors:
			if ok {
				log.Warn().Err(err).Msg("config watcher error")
			}
			return
		}
	}
}

func (conf *CLIConfig) fireCallbacksIfChanged(configFile, oldHash string) string {
	newHash, err := getFileHash(configFile)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring config file change")
		return oldHash
	}
	if newHash != oldHash {
		for _, callback := range conf.callbacks {
			go callback()
		}
	}
	return newHash
}

var (
	createNewWatcher = func() (*fsnotify.Watcher, error) {
		return fsnotify.NewWatcher()
	}

	getFileToWatch = func(configPath string) (filename string, err error) {
		for _, candidate := range []string{configPath, ConfigFilename} {
			if len(candidate) == 0 {
				continue
			}
			fileInfo, statErr := os.Stat(candidate)
			if statErr == nil && fileInfo.Mode().IsRegular() {
				return candidate, nil
			}
		}
		log.Warn().Err(errNoFileToWatch).Msg("could not find any file to watch")
		return "", errNoFileToWatch
	}

	getFileHash = func(filePath string) (hashHex string, err error) {
		file, err := os.Open(filePath)
		if err != nil {
			return "", err
		}
		defer file.Close()
		hasher := sha256.New()
		written, err := io.Copy(hasher, file)
		if err != nil {
			return "", err
		}
		if written == 0 {
			// editors truncate before rewrite; treat as not-a-change
			return "", errEmptyConfig
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	}
)
