package memory

import "github.com/lr35902/dmg-core/jeebie/util"

const (
	newTitleLength = 11
	oldTitleLength = 8
)

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E
)

// MBCType identifies which memory bank controller a cartridge requires,
// as derived from the cartridge type byte at 0x147.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x10000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData initializes a new Cartridge from a slice of bytes.
func NewCartridgeWithData(bytes []byte) *Cartridge {
	// byte 0x14B == 0x33 means the header uses the newer 15-byte title/
	// manufacturer-code/CGB-flag layout, which shrinks the title to 11 bytes;
	// older carts have no manufacturer code and the title runs a full 8 bytes.
	titleLen := oldTitleLength
	if bytes[oldLicenseCodeAddress] == 0x33 {
		titleLen = newTitleLength
	}
	titleBytes := bytes[titleAddress : titleAddress+titleLen]

	cartType := bytes[cartridgeTypeAddress]
	ramSize := bytes[ramSizeAddress]

	mbcType, hasBattery, hasRTC, hasRumble := classifyCartType(cartType)

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: util.CombineBytes(bytes[headerChecksumAddress+1], bytes[headerChecksumAddress]),
		globalChecksum: util.CombineBytes(bytes[globalChecksumAddress+1], bytes[globalChecksumAddress]),
		version:        bytes[versionNumberAddress],
		cartType:       cartType,
		romSize:        bytes[romSizeAddress],
		ramSize:        ramSize,

		mbcType:      mbcType,
		hasBattery:   hasBattery,
		hasRTC:       hasRTC,
		hasRumble:    hasRumble,
		ramBankCount: ramBankCount(ramSize),
	}

	copy(cart.data, bytes)

	return cart
}

// classifyCartType maps the cartridge type byte (0x147) to the MBC it
// requires, along with the auxiliary hardware features that byte implies.
// See https://gbdev.io/pandocs/The_Cartridge_Header.html#0147--cartridge-type
func classifyCartType(cartType uint8) (mbcType MBCType, hasBattery, hasRTC, hasRumble bool) {
	switch cartType {
	case 0x00, 0x08, 0x09:
		return NoMBCType, cartType == 0x09, false, false
	case 0x01, 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x0F:
		return MBC3Type, true, true, false
	case 0x10:
		return MBC3Type, true, true, false
	case 0x11, 0x12:
		return MBC3Type, false, false, false
	case 0x13:
		return MBC3Type, true, false, false
	case 0x19, 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C, 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}

// ramBankCount maps the RAM size byte (0x149) to a number of 8KB banks.
func ramBankCount(ramSizeByte uint8) uint8 {
	switch ramSizeByte {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// ReadByte reads a byte at the specified address. Does not check bounds, so the caller must make sure the
// address is valid for the cartridge.
func (c Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}

// WriteByte attempts a write to the specified address. Writing to a cartridge has sense if the cartridge
// has extra RAM or for some special operations, like switching ROM banks.
func (c Cartridge) WriteByte(addr uint16, value uint8) uint8 {
	return c.data[addr]
}
