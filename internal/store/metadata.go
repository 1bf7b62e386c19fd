package store

import (
	"database/sql"
	"errors"
	"strconv"

	"github.com/pavelanni/gradeboard/internal/analytics"
	"github.com/pavelanni/gradeboard/internal/model"
)

const (
	metaClassName     = "class_name"
	metaPassThreshold = "pass_threshold"
)

func (s *Store) getMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM class_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) setMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO class_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// ClassInfo returns the stored class settings, falling back to defaults
// for anything unset.
func (s *Store) ClassInfo() (model.ClassInfo, error) {
	info := model.ClassInfo{PassThreshold: analytics.DefaultPassThreshold}
	name, err := s.getMeta(metaClassName)
	if err != nil {
		return info, err
	}
	info.ClassName = name

	raw, err := s.getMeta(metaPassThreshold)
	if err != nil {
		return info, err
	}
	if raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err == nil && threshold > 0 {
			info.PassThreshold = threshold
		}
	}
	return info, nil
}

// SetClassInfo persists the class settings.
func (s *Store) SetClassInfo(info model.ClassInfo) error {
	if err := s.setMeta(metaClassName, info.ClassName); err != nil {
		return err
	}
	return s.setMeta(metaPassThreshold, strconv.FormatFloat(info.PassThreshold, 'f', -1, 64))
}
