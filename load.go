package xm

// loadModule parses data into mod, sizing every slice exactly once from the
// PrescanResult. The walk is strictly forward: header, then patterns, then
// instruments (with their envelopes and sample headers), then sample
// waveform data.
func loadModule(mod *Module, data []byte, pre PrescanResult) {
	r := bufReader{data}

	mod.Name = r.stringAt(17, moduleNameLength)
	mod.TrackerName = r.stringAt(38, trackerNameLength)

	offset := 60
	headerSize := r.u32(offset)

	mod.Length = r.u16(offset + 4)
	if mod.Length > patternOrderTableLen-1 {
		mod.Length = patternOrderTableLen - 1
	}
	mod.RestartPosition = r.u16(offset + 6)
	if mod.RestartPosition >= mod.Length {
		mod.RestartPosition = 0
	}
	mod.NumChannels = r.u16(offset + 8)
	mod.NumPatterns = r.u16(offset + 10)
	mod.NumInstruments = r.u16(offset + 12)

	flags := r.u32(offset + 14)
	if flags&1 != 0 {
		mod.FrequencyType = LinearFrequencies
	} else {
		mod.FrequencyType = AmigaFrequencies
	}

	mod.InitialTempo = r.u16(offset + 16)
	mod.InitialBPM = r.u16(offset + 18)

	r.memcpyPad(mod.PatternTable[:], offset+20, patternOrderTableLen)
	offset += int(headerSize)

	mod.Patterns = make([]Pattern, mod.NumPatterns)
	mod.Slots = make([]PatternSlot, pre.totalSlots)
	var slotCursor uint32

	for i := range mod.Patterns {
		pat := &mod.Patterns[i]
		packedSize := r.u16(offset + 7)
		pat.NumRows = clampNumRows(r.u16(offset + 5))
		pat.SlotsIndex = slotCursor

		numSlots := uint32(pat.NumRows) * uint32(mod.NumChannels)
		slots := mod.Slots[pat.SlotsIndex : pat.SlotsIndex+numSlots]
		slotCursor += numSlots

		offset += int(r.u32(offset))

		if packedSize == 0 {
			// Zero-value slots are already the make() default.
		} else {
			j, k := 0, 0
			for uint16(j) < packedSize && k < len(slots) {
				note := r.u8(offset + j)
				slot := &slots[k]
				k++

				if note&0x80 != 0 {
					j++
					if note&0x01 != 0 {
						slot.Note = r.u8(offset + j)
						j++
					}
					if note&0x02 != 0 {
						slot.Instrument = r.u8(offset + j)
						j++
					}
					if note&0x04 != 0 {
						slot.VolumeColumn = r.u8(offset + j)
						j++
					}
					if note&0x08 != 0 {
						slot.EffectType = r.u8(offset + j)
						j++
					}
					if note&0x10 != 0 {
						slot.EffectParam = r.u8(offset + j)
						j++
					}
				} else {
					slot.Note = note
					slot.Instrument = r.u8(offset + j + 1)
					slot.VolumeColumn = r.u8(offset + j + 2)
					slot.EffectType = r.u8(offset + j + 3)
					slot.EffectParam = r.u8(offset + j + 4)
					j += 5
				}

				// The file stores key off as note 97; remap it so
				// valid notes fit in 7 bits. Out-of-range notes
				// are dropped.
				if slot.Note == numNotes+1 {
					slot.Note = keyOffNote
				} else if slot.Note > numNotes {
					slot.Note = 0
				}
			}
		}

		offset += int(packedSize)
	}

	mod.Instruments = make([]Instrument, mod.NumInstruments)
	mod.Samples = make([]Sample, pre.totalSamples)
	mod.SampleData = make([]float32, pre.totalSampleData)
	var sampleCursor uint16
	var sampleDataCursor uint32

	for i := range mod.Instruments {
		instr := &mod.Instruments[i]
		instr.Name = r.stringAt(offset+4, instrumentNameLength)
		instr.NumSamples = r.u16(offset + 27)

		var sampleHeaderSize uint32
		if instr.NumSamples > 0 {
			sampleHeaderSize = r.u32(offset + 29)
			r.memcpyPad(instr.SampleOfNotes[:], offset+33, numNotes)

			instr.VolumeEnvelope.NumPoints = r.u8(offset + 225)
			if instr.VolumeEnvelope.NumPoints > maxEnvelopePoints {
				instr.VolumeEnvelope.NumPoints = maxEnvelopePoints
			}
			instr.PanningEnvelope.NumPoints = r.u8(offset + 226)
			if instr.PanningEnvelope.NumPoints > maxEnvelopePoints {
				instr.PanningEnvelope.NumPoints = maxEnvelopePoints
			}

			for j := 0; j < int(instr.VolumeEnvelope.NumPoints); j++ {
				instr.VolumeEnvelope.Points[j].Frame = r.u16(offset + 129 + 4*j)
				instr.VolumeEnvelope.Points[j].Value = clampEnvelopeValue(r.u16(offset + 129 + 4*j + 2))
			}
			for j := 0; j < int(instr.PanningEnvelope.NumPoints); j++ {
				instr.PanningEnvelope.Points[j].Frame = r.u16(offset + 177 + 4*j)
				instr.PanningEnvelope.Points[j].Value = clampEnvelopeValue(r.u16(offset + 177 + 4*j + 2))
			}

			instr.VolumeEnvelope.SustainPoint = r.u8(offset + 227)
			instr.VolumeEnvelope.LoopStartPoint = r.u8(offset + 228)
			instr.VolumeEnvelope.LoopEndPoint = r.u8(offset + 229)

			instr.PanningEnvelope.SustainPoint = r.u8(offset + 230)
			instr.PanningEnvelope.LoopStartPoint = r.u8(offset + 231)
			instr.PanningEnvelope.LoopEndPoint = r.u8(offset + 232)

			vFlags := r.u8(offset + 233)
			instr.VolumeEnvelope.Enabled = vFlags&1 != 0
			instr.VolumeEnvelope.SustainEnabled = vFlags&2 != 0
			instr.VolumeEnvelope.LoopEnabled = vFlags&4 != 0

			pFlags := r.u8(offset + 234)
			instr.PanningEnvelope.Enabled = pFlags&1 != 0
			instr.PanningEnvelope.SustainEnabled = pFlags&2 != 0
			instr.PanningEnvelope.LoopEnabled = pFlags&4 != 0

			sanitizeEnvelope(&instr.VolumeEnvelope)
			sanitizeEnvelope(&instr.PanningEnvelope)

			instr.VibratoType = r.u8(offset + 235)
			switch instr.VibratoType {
			case 2:
				instr.VibratoType = 1
			case 1:
				instr.VibratoType = 2
			}
			instr.VibratoSweep = r.u8(offset + 236)
			instr.VibratoDepth = r.u8(offset + 237)
			instr.VibratoRate = r.u8(offset + 238)
			instr.VolumeFadeout = r.u16(offset + 239)

			instr.SamplesIndex = sampleCursor
			sampleCursor += instr.NumSamples

			for n := range instr.SampleOfNotes {
				if uint16(instr.SampleOfNotes[n]) >= instr.NumSamples {
					instr.SampleOfNotes[n] = 0
				}
			}
		}

		offset += int(r.u32(offset))

		samples := mod.Samples[instr.SamplesIndex : instr.SamplesIndex+instr.NumSamples]
		for j := range samples {
			s := &samples[j]
			s.Length = r.u32(offset)
			s.LoopStart = r.u32(offset + 4)
			s.LoopLength = r.u32(offset + 8)
			s.LoopEnd = s.LoopStart + s.LoopLength
			s.Volume = r.u8(offset + 12)
			if s.Volume > maxVolume {
				s.Volume = maxVolume
			}
			s.FineTune = int8(r.u8(offset + 13))

			sflags := r.u8(offset + 14)
			switch sflags & 3 {
			case 0:
				s.LoopType = NoLoop
			case 1:
				s.LoopType = ForwardLoop
			default:
				s.LoopType = PingPongLoop
			}
			if sflags&(1<<4) != 0 {
				s.Bits = 16
			} else {
				s.Bits = 8
			}

			s.Panning = r.u8(offset + 15)
			s.RelativeNote = int8(r.u8(offset + 16))
			s.Name = r.stringAt(offset+18, sampleNameLength)

			s.Index = sampleDataCursor
			sampleDataCursor += s.Length

			if s.Bits == 16 {
				s.LoopStart >>= 1
				s.LoopLength >>= 1
				s.LoopEnd >>= 1
				s.Length >>= 1
			}

			// Loop points must stay inside the waveform, and a
			// zero-length loop is no loop at all.
			if s.LoopEnd > s.Length {
				s.LoopEnd = s.Length
			}
			if s.LoopStart > s.LoopEnd {
				s.LoopStart = s.LoopEnd
			}
			s.LoopLength = s.LoopEnd - s.LoopStart
			if s.LoopLength == 0 {
				s.LoopType = NoLoop
			}
			if s.LoopType == NoLoop {
				s.LoopEnd = s.Length
			}

			offset += int(sampleHeaderSize)
		}

		for j := range samples {
			s := &samples[j]
			dst := mod.SampleData[s.Index : s.Index+s.Length]
			if s.Bits == 16 {
				var acc int16
				for k := range dst {
					acc += int16(r.u16(offset + 2*k))
					dst[k] = float32(acc) / float32(1<<15)
				}
				offset += int(s.Length) * 2
			} else {
				var acc int8
				for k := range dst {
					acc += int8(r.u8(offset + k))
					dst[k] = float32(acc) / float32(1<<7)
				}
				offset += int(s.Length)
			}
		}
	}
}

func clampEnvelopeValue(v uint16) uint8 {
	if v > maxEnvelopeValue {
		return maxEnvelopeValue
	}
	return uint8(v)
}

// sanitizeEnvelope forces an envelope's point indices into the range of
// points it actually has, so ticking it can never index past NumPoints.
// Envelopes with fewer than two points can hold no segment to interpolate
// and are disabled outright.
func sanitizeEnvelope(env *Envelope) {
	if env.NumPoints < 2 {
		env.Enabled = false
	}
	max := env.NumPoints
	if max > 0 {
		max--
	}
	if env.SustainPoint > max {
		env.SustainPoint = max
	}
	if env.LoopStartPoint > max {
		env.LoopStartPoint = max
	}
	if env.LoopEndPoint > max {
		env.LoopEndPoint = max
	}
}

// checkSanityPostload validates that every entry of the pattern order table
// in use (i.e. indices [0, mod.Length)) refers to an existing pattern. A
// single trailing bad entry is tolerated by trimming Length, a tolerance
// real modules in the wild need; anything else is a hard failure.
func checkSanityPostload(mod *Module) error {
	if mod.Length == 0 {
		return ErrInvalid
	}
	for i := uint16(0); i < mod.Length; i++ {
		if uint16(mod.PatternTable[i]) < mod.NumPatterns {
			continue
		}
		if i+1 == mod.Length && mod.Length > 1 {
			mod.Length--
			if mod.RestartPosition >= mod.Length {
				mod.RestartPosition = 0
			}
			return nil
		}
		return ErrInvalid
	}
	return nil
}
