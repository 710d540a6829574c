// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing stream identifier.
// Each stream constructor assigns the next serial value; the producer
// and consumer sides of one stream share it.
type Serial = uint32

// counter is the global monotonic counter for stream serials.
var counter atomix.Uint32

// nextSerial returns the next monotonically increasing serial.
func nextSerial() Serial {
	return counter.Add(1)
}
