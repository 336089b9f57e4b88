package mass

import (
	"context"
	"errors"
	"fmt"

	"github.com/miwear-protocol/miwear-go/pkg/crypto"
	"github.com/miwear-protocol/miwear-go/pkg/device"
	"github.com/miwear-protocol/miwear-go/pkg/wearpb"
	"github.com/miwear-protocol/miwear-go/pkg/wire"
)

// Transfer errors.
var (
	// ErrTransferInFlight indicates a second Send on a device already
	// uploading.
	ErrTransferInFlight = errors.New("mass transfer already in flight")

	// ErrSliceLengthZero indicates the peer advertised an unusable
	// fragment size.
	ErrSliceLengthZero = errors.New("peer advertised zero slice length")
)

// PrepareError reports a non-READY prepare verdict.
type PrepareError struct {
	Status wearpb.PrepareStatus
}

// Error maps the status to a human-readable reason.
func (e *PrepareError) Error() string {
	return "prepare rejected: " + PrepareStatusMessage(e.Status)
}

// PrepareStatusMessage returns the user-facing string for a prepare status.
func PrepareStatusMessage(s wearpb.PrepareStatus) string {
	switch s {
	case wearpb.PrepareBusy:
		return "the device is busy; restart it and try again"
	case wearpb.PrepareDowngrade:
		return "downgrade refused; the resource ID may collide with an installed version"
	case wearpb.PrepareDuplicated:
		return "this resource is already installed"
	case wearpb.PrepareExceedQuantityLimit:
		return "the device's resource limit is reached; remove something first"
	case wearpb.PrepareLowBattery:
		return "battery too low to install; charge the device"
	case wearpb.PrepareLowStorage:
		return "not enough storage on the device"
	case wearpb.PrepareNetworkError:
		return "device-side network error during install"
	case wearpb.PrepareOpNotSupport:
		return "the device does not support this operation"
	case wearpb.PrepareFailed:
		return "the device reported an unspecified failure"
	default:
		return fmt.Sprintf("unexpected prepare status %d", s)
	}
}

// Progress reports per-block upload progress.
type Progress struct {
	// Progress is CurrentPart / TotalParts.
	Progress float32

	// TotalParts is the block count for this transfer.
	TotalParts uint16

	// CurrentPart is the 1-indexed block just handed to the pool.
	CurrentPart uint16

	// PayloadLen is the block body size in bytes.
	PayloadLen int
}

// ProgressFunc observes upload progress. It is called on the transfer
// goroutine and must return promptly.
type ProgressFunc func(Progress)

// Send uploads fileData as dataType, resuming from a saved cursor when one
// matches (device address, file MD5).
//
// The call returns once every block is handed to the command pool; block
// ACKs are consumed by detached watchers that advance the resume cursor.
func Send(ctx context.Context, dev *device.Device, fileData []byte, dataType DataType, progress ProgressFunc) error {
	fileMD5 := crypto.MD5Sum(fileData)
	addr := dev.State().Addr()

	prepared, err := prepare(ctx, dev, fileData, fileMD5, dataType)
	if err != nil {
		// No cursor is created for a rejected transfer.
		return err
	}

	startPart := resume.start(addr, fileMD5)

	blob := BuildInnerBlob(fileData, dataType)

	fragmentMax := int(prepared.ExpectedSliceLength) - fragmentOverhead
	if fragmentMax <= 0 {
		return fmt.Errorf("%w: %d", ErrSliceLengthZero, prepared.ExpectedSliceLength)
	}

	totalBlocks := uint16((len(blob) + fragmentMax - 1) / fragmentMax)
	if totalBlocks == 0 {
		return nil
	}

	if !dev.SetMassActive(true) {
		return ErrTransferInFlight
	}
	defer dev.SetMassActive(false)

	// Exclusive use of the link for the whole upload; only the Network
	// channel's unlocked path interleaves.
	lock := dev.SendLock()
	lock.Lock()
	defer lock.Unlock()

	for part := startPart; part <= totalBlocks; part++ {
		start := int(part-1) * fragmentMax
		end := start + fragmentMax
		if end > len(blob) {
			end = len(blob)
		}
		body := blockBody(totalBlocks, part, blob[start:end])

		if progress != nil {
			progress(Progress{
				Progress:    float32(part) / float32(totalBlocks),
				TotalParts:  totalBlocks,
				CurrentPart: part,
				PayloadLen:  len(body),
			})
		}

		select {
		case <-dev.Done():
			return device.ErrLinkDown
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ack, err := dev.SendPacketRegisterAck(ctx, wire.ChannelMass, wire.OpPlain, body, true)
		if err != nil {
			return fmt.Errorf("send block %d/%d: %w", part, totalBlocks, err)
		}

		// The ACK is consumed off the transfer path; the cursor only
		// advances for acknowledged blocks, so a disconnect resumes at the
		// first unacknowledged one.
		go watchAck(dev, ack, addr, fileMD5, part, totalBlocks)
	}

	return nil
}

// watchAck advances the resume cursor when the block's ACK arrives.
func watchAck(dev *device.Device, ack <-chan struct{}, addr string, md5 []byte, part, total uint16) {
	select {
	case <-ack:
		resume.advance(addr, md5, part, total)
	case <-dev.Done():
	}
}

// prepare runs phase A and returns the peer's response.
func prepare(ctx context.Context, dev *device.Device, fileData, fileMD5 []byte, dataType DataType) (*wearpb.MassPrepareResponse, error) {
	req := &wearpb.WearPacket{
		Type: wearpb.TypeMass,
		ID:   wearpb.MassIDPrepare,
		Mass: &wearpb.Mass{
			PrepareRequest: &wearpb.MassPrepareRequest{
				DataType:   uint32(dataType),
				DataID:     fileMD5,
				DataLength: uint32(len(fileData)),
			},
		},
	}

	reply, err := dev.RequestProto(ctx, wire.ChannelPb, wire.OpEncrypted, req.Marshal(),
		uint32(wearpb.TypeMass), wearpb.MassIDPrepare, 0)
	if err != nil {
		return nil, fmt.Errorf("mass prepare: %w", err)
	}
	if reply.Mass == nil || reply.Mass.PrepareResponse == nil {
		return nil, fmt.Errorf("mass prepare: reply carried no prepare response")
	}

	resp := reply.Mass.PrepareResponse
	if resp.Status != wearpb.PrepareReady {
		return nil, &PrepareError{Status: resp.Status}
	}
	return resp, nil
}
