package xm

// channelState is the per-channel mutable playback state. instrumentIdx and
// sampleIdx are arena indices into the owning Context's Module tables
// rather than pointers, per the arena+index model: -1 means "none".
type channelState struct {
	instrumentIdx int
	sampleIdx     int
	current       *PatternSlot

	note     float32
	origNote float32

	samplePosition             float32
	period                     float32
	tonePortamentoTargetPeriod float32
	frequency                  float32
	step                       float32

	actualVolume        [2]float32
	targetVolume        [2]float32
	frameCount          uint32
	endOfPreviousSample [rampingPoints]float32

	fadeoutVolume uint16

	autovibratoTicks          uint16
	volumeEnvelopeFrameCount  uint16
	panningEnvelopeFrameCount uint16
	volumeEnvelopeVolume      uint8
	panningEnvelopePanning    uint8

	volume  uint8
	panning uint8

	autovibratoNoteOffset int8
	arpNoteOffset         uint8

	volumeSlideParam             uint8
	fineVolumeSlideParam         uint8
	globalVolumeSlideParam       uint8
	panningSlideParam            uint8
	portamentoUpParam            uint8
	portamentoDownParam          uint8
	finePortamentoUpParam        uint8
	finePortamentoDownParam      uint8
	extraFinePortamentoUpParam   uint8
	extraFinePortamentoDownParam uint8
	tonePortamentoParam          uint8
	multiRetrigParam             uint8
	noteDelayParam               uint8
	patternLoopOrigin            uint8
	patternLoopCount             uint8
	tremorParam                  uint8
	sampleOffsetParam            uint8

	tremoloParam        uint8
	tremoloControlParam uint8
	tremoloTicks        uint8
	tremoloVolumeOffset int8

	vibratoParam        uint8
	vibratoControlParam uint8
	vibratoTicks        uint8
	vibratoNoteOffset   int8

	sustained           bool
	muted               bool
	shouldResetVibrato  bool
	shouldResetArpeggio bool
	tremorOn            bool

	latestTrigger uint64
}

// Context owns a loaded Module and every byte of per-channel playback
// state. It is the only mutable thing in this package; Generate is the
// single operation that advances it.
type Context struct {
	module Module

	channels     []channelState
	rowLoopCount []uint8

	generatedSamples uint64

	remainingSamplesInTick float32

	rate uint32

	currentTick uint8
	extraTicks  uint8

	tempo uint16
	bpm   uint16

	globalVolume      uint8
	currentTableIndex uint8
	currentRow        uint8

	positionJump bool
	patternBreak bool
	jumpDest     uint8
	jumpRow      uint8

	loopCount    uint8
	maxLoopCount uint8

	amplification float32
	volumeRamp    float32

	nextRand uint32
}

// NewContext parses data, validates it, and returns a context ready to
// generate audio at the given sample rate. It combines Prescan and context
// creation into one call; every Module slice it allocates is sized exactly
// once from the prescan result and never reallocated afterwards, so no
// allocation happens once Generate starts being called.
func NewContext(data []byte, rate uint32) (*Context, error) {
	pre, err := Prescan(data)
	if err != nil {
		return nil, err
	}
	if pre.ArenaSize() < 0 {
		return nil, ErrOutOfMemory
	}

	c := &Context{rate: rate}
	loadModule(&c.module, data, pre)

	if err := checkSanityPostload(&c.module); err != nil {
		return nil, err
	}

	c.initPlaybackState()
	return c, nil
}

// initPlaybackState allocates the per-channel state and row-loop counter
// for the already-loaded module and resets every playback default.
func (c *Context) initPlaybackState() {
	c.channels = make([]channelState, c.module.NumChannels)
	c.rowLoopCount = make([]uint8, int(maxRowsPerPattern)*int(c.module.Length))

	c.tempo = c.module.InitialTempo
	c.bpm = c.module.InitialBPM
	c.globalVolume = maxVolume
	c.amplification = amplification
	c.volumeRamp = rampingVolumeRamp
	c.nextRand = 24492

	for i := range c.channels {
		ch := &c.channels[i]
		ch.instrumentIdx = -1
		ch.sampleIdx = -1
		ch.volume = maxVolume
		ch.volumeEnvelopeVolume = maxEnvelopeValue
		ch.fadeoutVolume = maxFadeoutVolume - 1
		ch.panning = maxPanning / 2
		ch.panningEnvelopePanning = maxEnvelopeValue / 2
		ch.actualVolume = [2]float32{0, 0}
		ch.targetVolume = [2]float32{0, 0}
		ch.vibratoControlParam = 0
		ch.tremoloControlParam = 0
		ch.current = &zeroSlot
	}
}

var zeroSlot PatternSlot

func (c *Context) instrumentAt(idx int) *Instrument {
	if idx < 0 || idx >= len(c.module.Instruments) {
		return nil
	}
	return &c.module.Instruments[idx]
}

func (c *Context) sampleAt(idx int) *Sample {
	if idx < 0 || idx >= len(c.module.Samples) {
		return nil
	}
	return &c.module.Samples[idx]
}

// SetSampleRate changes the output sample rate; it takes effect starting at
// the next tick boundary.
func (c *Context) SetSampleRate(rate uint32) { c.rate = rate }

// SetMaxLoopCount bounds how many times the module may loop before
// Generate starts emitting silence. 0 means unbounded.
func (c *Context) SetMaxLoopCount(n uint8) { c.maxLoopCount = n }

// LoopCount returns how many times the module has looped so far.
func (c *Context) LoopCount() uint8 { return c.loopCount }

// Seek sets the playback cursor directly and forces the next Generate call
// to re-enter the sequencer rather than continue mid-tick.
func (c *Context) Seek(pot, row, tick int) {
	c.currentTableIndex = uint8(pot)
	c.currentRow = uint8(row)
	c.currentTick = uint8(tick)
	c.remainingSamplesInTick = 0
}

// Position reports the current play cursor and total generated sample
// count.
func (c *Context) Position() (potIndex, pattern, row uint8, samples uint64) {
	potIndex = c.currentTableIndex
	pattern = c.module.PatternTable[c.currentTableIndex]
	row = c.currentRow
	samples = c.generatedSamples
	return
}

// PlayingSpeed reports the current BPM and tempo (ticks per row).
func (c *Context) PlayingSpeed() (bpm, tempo uint16) {
	return c.bpm, c.tempo
}

// MuteChannel toggles a channel's mute flag (1-based, matching the XM
// channel numbering convention) and returns its previous value.
func (c *Context) MuteChannel(channel int, mute bool) bool {
	if channel < 1 || channel > len(c.channels) {
		return false
	}
	ch := &c.channels[channel-1]
	old := ch.muted
	ch.muted = mute
	return old
}

// MuteInstrument toggles an instrument's mute flag (1-based) and returns
// its previous value.
func (c *Context) MuteInstrument(instr int, mute bool) bool {
	if instr < 1 || instr > len(c.module.Instruments) {
		return false
	}
	in := &c.module.Instruments[instr-1]
	old := in.Muted
	in.Muted = mute
	return old
}

// NumChannels returns the module's channel count.
func (c *Context) NumChannels() int { return int(c.module.NumChannels) }

// ModuleName returns the module's display name.
func (c *Context) ModuleName() string { return c.module.Name }

// TrackerName returns the name of the tracker that saved the module.
func (c *Context) TrackerName() string { return c.module.TrackerName }

// ModuleLength returns the number of entries used in the pattern order
// table.
func (c *Context) ModuleLength() uint16 { return c.module.Length }

// NumPatterns returns the number of distinct patterns in the module.
func (c *Context) NumPatterns() uint16 { return c.module.NumPatterns }

// NumRows returns the row count of the given pattern index.
func (c *Context) NumRows(pattern uint16) uint16 {
	if int(pattern) >= len(c.module.Patterns) {
		return 0
	}
	return c.module.Patterns[pattern].NumRows
}

// NumInstruments returns the number of instruments in the module.
func (c *Context) NumInstruments() uint16 { return c.module.NumInstruments }

// NumSamples returns the number of samples belonging to instrument (1-based).
func (c *Context) NumSamples(instrument uint16) uint16 {
	if instrument == 0 || int(instrument) > len(c.module.Instruments) {
		return 0
	}
	return c.module.Instruments[instrument-1].NumSamples
}

// FrequencyOfChannel returns the last computed playback frequency, in Hz,
// of the given channel (1-based).
func (c *Context) FrequencyOfChannel(channel int) float32 {
	if channel < 1 || channel > len(c.channels) {
		return 0
	}
	return c.channels[channel-1].frequency
}

// VolumeOfChannel returns the channel's current 0..64 volume.
func (c *Context) VolumeOfChannel(channel int) uint8 {
	if channel < 1 || channel > len(c.channels) {
		return 0
	}
	return c.channels[channel-1].volume
}

// PanningOfChannel returns the channel's current 0..255 panning.
func (c *Context) PanningOfChannel(channel int) uint8 {
	if channel < 1 || channel > len(c.channels) {
		return 0
	}
	return c.channels[channel-1].panning
}

// InstrumentOfChannel returns the 1-based instrument index currently
// assigned to the channel, or 0 if none.
func (c *Context) InstrumentOfChannel(channel int) int {
	if channel < 1 || channel > len(c.channels) {
		return 0
	}
	return c.channels[channel-1].instrumentIdx + 1
}

// IsChannelActive reports whether the channel has both an instrument and a
// sample currently assigned.
func (c *Context) IsChannelActive(channel int) bool {
	if channel < 1 || channel > len(c.channels) {
		return false
	}
	ch := &c.channels[channel-1]
	return ch.instrumentIdx >= 0 && ch.sampleIdx >= 0
}

// LatestTriggerOfInstrument returns the generated-samples counter value at
// the instrument's most recent trigger.
func (c *Context) LatestTriggerOfInstrument(instrument int) uint64 {
	if in := c.instrumentAt(instrument - 1); in != nil {
		return in.LatestTrigger
	}
	return 0
}

// LatestTriggerOfSample returns the generated-samples counter value at the
// most recent trigger of the given instrument's sample.
func (c *Context) LatestTriggerOfSample(instrument, sample int) uint64 {
	in := c.instrumentAt(instrument - 1)
	if in == nil || sample < 1 || sample > int(in.NumSamples) {
		return 0
	}
	return c.module.Samples[int(in.SamplesIndex)+sample-1].LatestTrigger
}

// LatestTriggerOfChannel returns the generated-samples counter value at the
// channel's most recent trigger.
func (c *Context) LatestTriggerOfChannel(channel int) uint64 {
	if channel < 1 || channel > len(c.channels) {
		return 0
	}
	return c.channels[channel-1].latestTrigger
}
