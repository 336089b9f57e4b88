// Package mass implements the bulk upload subprotocol for watchfaces,
// mini-apps and firmware.
//
// # Two phases
//
// Prepare: a protobuf request announces the upload (data type, MD5,
// length); only a READY verdict proceeds. The response carries the peer's
// preferred fragment size.
//
// Transfer: the file is wrapped in an inner blob
//
//	comp_flag(1) | data_type(1) | md5(16) | length(4 LE) | payload | crc32(4 LE)
//
// and cut into 1-indexed blocks of
//
//	expected_slice_length − 6
//
// bytes (channel, opcode, blocks_total and block_index eat six bytes of
// every Data-frame body). Each block rides the Mass channel through the
// command pool's unlocked register-ACK path; the per-block ACK advances a
// resume cursor in a detached goroutine.
//
// # Resume
//
// Cursors are process-wide, keyed by (device address, file MD5). A
// disconnect aborts the loop but leaves the cursor; the next Send with the
// same key restarts from the saved block. A different MD5 for the same
// device resets the cursor to block 1.
//
// The send lock is held for the whole transfer so nothing interleaves
// mid-upload, except Network-channel traffic, which rides the pool's
// unlocked path so tunnel keep-alives survive long OTA pushes.
package mass
