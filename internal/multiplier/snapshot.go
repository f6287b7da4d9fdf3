package multiplier

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/dropDatabas3/coinsync/internal/domain/types"
	"github.com/dropDatabas3/coinsync/internal/observability/logger"
	"github.com/dropDatabas3/coinsync/internal/util/atomicwrite"
	"github.com/dropDatabas3/coinsync/internal/wire"
)

// snapshotFile guarda los multipliers propios, uno por línea, con el mismo
// encoding que viaja en los envelopes.
type snapshotFile struct {
	path string
	log  *zap.Logger
}

// load lee el snapshot. Las líneas que no decodifican se descartan y el
// archivo se reescribe sin ellas.
func (s *snapshotFile) load() ([]types.Multiplier, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var (
		out     []types.Multiplier
		dropped int
		lineNo  int
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		m, err := wire.DecodeMultiplier(line)
		if err != nil {
			dropped++
			s.log.Warn("dropping bad snapshot line",
				logger.Path(s.path), zap.Int("line", lineNo), logger.Err(err))
			continue
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshot %s: %w", s.path, err)
	}

	if dropped > 0 {
		if err := s.write(out); err != nil {
			return out, err
		}
		s.log.Info("snapshot rewritten", logger.Path(s.path), logger.Count(len(out)))
	}
	return out, nil
}

func (s *snapshotFile) write(ms []types.Multiplier) error {
	lines := make([][]byte, 0, len(ms))
	for _, m := range ms {
		b, err := wire.EncodeMultiplier(m)
		if err != nil {
			return fmt.Errorf("encode multiplier %d: %w", m.ID, err)
		}
		lines = append(lines, b)
	}
	if err := atomicwrite.WriteLines(s.path, lines, 0o600); err != nil {
		return fmt.Errorf("write snapshot %s: %w", s.path, err)
	}
	return nil
}
