package bind_group_provider

// BufferWrite describes a single uniform write targeting a binding of a BindGroupProvider at a
// byte offset. The render host batches these per frame.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}
