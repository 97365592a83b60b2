package pathmodel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "/Фото/R1/car", "/Фото/R1/car"},
		{"backslashes", `\Фото\R1\car`, "/Фото/R1/car"},
		{"collapses slashes", "/Фото//R1///car", "/Фото/R1/car"},
		{"trims outer whitespace", "  /Фото/R1/car  ", "/Фото/R1/car"},
		{"strips spaces around slashes", "/Фото / R1 / car", "/Фото/R1/car"},
		{"no leading slash", "Фото/R1/car", "/Фото/R1/car"},
		{"strips disk scheme", "disk:/Фото/R1/car", "/Фото/R1/car"},
		{"strips disk scheme after slash", " /disk:/Фото / R1 ", "/Фото/R1"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Normalize(c.in)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize("   ")
	require.Error(t, err)

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "Empty", pathErr.Kind)
}

func TestNormalize_PathTraversal(t *testing.T) {
	_, err := Normalize("/Фото/../etc/passwd")

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "PathTraversal", pathErr.Kind)
}

func TestNormalize_SegmentSyntax(t *testing.T) {
	_, err := Normalize("/Фото/R1:car")

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "SegmentSyntax", pathErr.Kind)
}

func TestAssertDiskPath_TagsStage(t *testing.T) {
	_, err := AssertDiskPath("", "uploadBytes")

	var pathErr *PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, "uploadBytes", pathErr.Stage)
	assert.Contains(t, err.Error(), "[uploadBytes]")
}

func TestSanitizeSegment(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeSegment(`a/b:c`))
	assert.Equal(t, "abc", SanitizeSegment("a..b..c"))
}

func TestSanitizeFilename_PreservesExtension(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}

	name := string(long) + ".jpg"
	got := SanitizeFilename(name)

	assert.LessOrEqual(t, len(got), 255)
	assert.Contains(t, got, ".jpg")
}

func TestCarName(t *testing.T) {
	assert.Equal(t, "Toyota Camry 1HGCM82633A123456", CarName("Toyota", "Camry", "1HGCM82633A123456"))
}

func TestArchivedCarName(t *testing.T) {
	assert.Equal(t, "R1_Toyota_Camry_1HGCM82633A123456", ArchivedCarName("r1", "Toyota", "Camry", "1HGCM82633A123456"))
}

func TestCarRoot(t *testing.T) {
	got := CarRoot("/Фото", "r1", "Toyota", "Camry", "1HGCM82633A123456")
	assert.Equal(t, "/Фото/R1/Toyota Camry 1HGCM82633A123456", got)
}

func TestArchiveCarRoot(t *testing.T) {
	got := ArchiveCarRoot("/Фото", "r1", "Toyota", "Camry", "1HGCM82633A123456")
	assert.Equal(t, "/Фото/ALL/R1_Toyota_Camry_1HGCM82633A123456", got)
}

func TestValidateSlot(t *testing.T) {
	require.NoError(t, ValidateSlot(SlotDealer, 1))
	require.Error(t, ValidateSlot(SlotDealer, 2))
	require.NoError(t, ValidateSlot(SlotBuyout, 8))
	require.Error(t, ValidateSlot(SlotBuyout, 9))
	require.NoError(t, ValidateSlot(SlotDummies, 5))
	require.Error(t, ValidateSlot(SlotDummies, 0))
	require.Error(t, ValidateSlot(SlotType("bogus"), 1))
}

func TestSlotPath_Dealer(t *testing.T) {
	root := "/Фото/R1/Toyota Camry 1HGCM82633A123456"
	carName := "Toyota Camry 1HGCM82633A123456"

	got, err := SlotPath(root, carName, SlotDealer, 1)
	require.NoError(t, err)
	assert.Equal(t, root+"/1. Dealer photos/"+carName, got)
}

func TestSlotPath_Buyout(t *testing.T) {
	root := "/Фото/R1/Toyota Camry 1HGCM82633A123456"
	carName := "Toyota Camry 1HGCM82633A123456"

	got, err := SlotPath(root, carName, SlotBuyout, 3)
	require.NoError(t, err)
	assert.Equal(t, root+"/2. Buyout photos/3. "+carName, got)
}

func TestGetAllSlotPaths_Returns14InOrder(t *testing.T) {
	root := "/Фото/R1/Toyota Camry 1HGCM82633A123456"
	carName := "Toyota Camry 1HGCM82633A123456"

	all, err := GetAllSlotPaths(root, carName)
	require.NoError(t, err)
	require.Len(t, all, TotalSlotCount)

	assert.Equal(t, SlotDealer, all[0].Type)
	assert.Equal(t, SlotBuyout, all[1].Type)
	assert.Equal(t, 1, all[1].Index)
	assert.Equal(t, SlotDummies, all[9].Type)
	assert.Equal(t, 1, all[9].Index)

	seen := make(map[string]bool)
	for _, d := range all {
		assert.False(t, seen[d.Path], "duplicate path %s", d.Path)
		seen[d.Path] = true
	}
}

func FuzzNormalize(f *testing.F) {
	seeds := []string{
		"/Фото/R1/car",
		`\a\b\c`,
		"a//b///c",
		"",
		"   ",
		"disk:/x/y",
		"/x/../y",
		"/x:y",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, in string) {
		got, err := Normalize(in)
		if err != nil {
			return
		}

		// A successfully normalized path never contains a ".." segment,
		// never contains "\\", and always starts with "/".
		for _, seg := range strings.Split(got, "/") {
			assert.NotEqual(t, "..", seg)
		}
		assert.NotContains(t, got, `\`)
		if got != "" {
			assert.True(t, got[0] == '/')
		}

		// Normalize is idempotent: re-normalizing its own output is a
		// no-op.
		again, err := Normalize(got)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})
}
