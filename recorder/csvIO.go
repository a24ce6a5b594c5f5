package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// initializeCSV 创建文件并写入表头，已存在的文件会被覆盖
func initializeCSV(filename string, header []string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", filename, err)
	}
	writer.Flush()
	return writer.Error()
}

func appendToCSV(filename string, data [][]string) error {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(data); err != nil {
		return fmt.Errorf("failed to write data to %s: %w", filename, err)
	}
	return nil
}

// writeCSV 写入表头和全部数据
func writeCSV(filename string, header []string, data [][]string) error {
	if err := initializeCSV(filename, header); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return appendToCSV(filename, data)
}
