package httpx

import (
	"fmt"
	"math/rand/v2"
)

// RandomElisaIPv4 returns a random address from 91.152.0.0/13, a Finnish
// consumer ISP block. Sent as X-Forwarded-For so that the Yle APIs serve
// full metadata regardless of the caller's location.
func RandomElisaIPv4() string {
	// skip the network and broadcast addresses
	base := uint32(91)<<24 | uint32(152)<<16
	addr := base + 1 + rand.Uint32N(1<<19-2)
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}
