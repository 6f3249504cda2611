package waitroom

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dkeye/talkabout/internal/domain"
	"github.com/google/uuid"
)

// Minter produces call destinations. The call service creates the room
// lazily on first join, so a destination only has to be unique.
type Minter interface {
	Mint(slot domain.SlotID, group int) string
}

// JitsiMinter mints URLs of the form <base>/<prefix>_<slot>_<unix>_g<n>_<nonce>.
type JitsiMinter struct {
	BaseURL string
	Prefix  string

	Now   func() time.Time
	Nonce func() string
}

func NewJitsiMinter(baseURL, prefix string) *JitsiMinter {
	return &JitsiMinter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Prefix:  prefix,
		Now:     time.Now,
		Nonce:   func() string { return uuid.NewString()[:8] },
	}
}

func (m *JitsiMinter) Mint(slot domain.SlotID, group int) string {
	name := fmt.Sprintf("%s_%s_%d_g%d_%s", m.Prefix, slot, m.Now().Unix(), group+1, m.Nonce())
	return m.BaseURL + "/" + url.PathEscape(name)
}
