// Package atomicwrite escribe archivos de forma atómica: tmp en el mismo
// directorio, fsync, rename. Un lector nunca ve un archivo a medio escribir.
package atomicwrite

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile escribe data en path de forma atómica.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	return write(path, perm, func(w *bufio.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteLines escribe cada línea seguida de '\n'. Con lines vacío el archivo
// queda vacío (no se borra).
func WriteLines(path string, lines [][]byte, perm fs.FileMode) error {
	return write(path, perm, func(w *bufio.Writer) error {
		for _, l := range lines {
			if _, err := w.Write(l); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

func write(path string, perm fs.FileMode, fill func(*bufio.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	w := bufio.NewWriter(tmp)
	if err := fill(w); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	// en Windows el rename falla si el destino está abierto: remove + retry
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
