package loaders

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic uint32 = 0x07230203

// BinaryLoader reads compiled SPIR-V shader code. Resource.Data holds the
// code as []uint32 and DataSize its length in bytes.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(buf) < 4 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("%s: SPIR-V size %d is not a positive multiple of 4", path, len(buf))
	}

	res := bytesToBytecode(buf)
	if res[0] != SPIRVMagic {
		return nil, fmt.Errorf("%s: bad SPIR-V magic number 0x%08x", path, res[0])
	}

	return &metadata.Resource{
		Name:     resourceName(params, path),
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     res,
	}, nil
}

func (bl *BinaryLoader) Unload(r *metadata.Resource) error {
	r.Data = nil
	r.DataSize = 0
	return nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}

// resourceName takes the "name" entry of a map[string]string params value,
// falling back to the file path.
func resourceName(params interface{}, path string) string {
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		return p["name"]
	}
	return path
}
