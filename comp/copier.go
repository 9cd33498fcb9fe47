package comp

// Copier passes bytes through unchanged.
type Copier struct{}

func newCopier(cfg Config) (Ops, error) {
	if err := DecodeOptions(cfg, &struct{}{}); err != nil {
		return nil, err
	}
	return NewModuleAdapter(&Copier{})
}

func (Copier) ProcessRawData(in [][]byte, out []byte) (int, error) {
	return copy(out, in[0]), nil
}
