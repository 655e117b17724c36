package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"

	"barinv/config"
	"barinv/render"
)

// GetConfigHandler は現在の設定を返します
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, config.GetConfig())
	}
}

// SaveConfigHandler は設定を保存します
func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			render.JSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		newCfg.ExportFolderPath = strings.TrimSpace(newCfg.ExportFolderPath)
		newCfg.BrowserPath = strings.TrimSpace(newCfg.BrowserPath)

		// 発注書の保存先フォルダ
		if err := validateFolderPath(newCfg.ExportFolderPath); err != nil {
			render.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		if newCfg.BrowserPath != "" {
			if info, err := os.Stat(newCfg.BrowserPath); err != nil || info.IsDir() {
				render.JSONError(w, http.StatusBadRequest, "browser not found: "+newCfg.BrowserPath)
				return
			}
		}

		if err := config.SaveConfig(newCfg); err != nil {
			log.Printf("Error saving config: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}

		render.JSON(w, http.StatusOK, map[string]string{"message": "settings saved"})
	}
}

// フォルダパスを検証するヘルパー関数
func validateFolderPath(path string) error {
	if path == "" {
		return nil // 空の場合は検証しない
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("folder not found: " + path)
		}
		log.Printf("Error checking folder path: %v", err)
		return errors.New("could not check the folder path")
	}
	if !info.IsDir() {
		return errors.New("not a folder: " + path)
	}
	return nil
}
