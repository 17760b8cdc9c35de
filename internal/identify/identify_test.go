package identify

import "testing"

func TestIdentify_RuleOrder(t *testing.T) {
	tests := []struct {
		name       string
		body       []byte
		opts       Options
		wantKind   Kind
		wantReason string
	}{
		{"rbxm model", []byte("<roblox! version=\"4\">"), DefaultOptions(), RbxmModel, ""},
		{"unsupported xml", []byte("<roblox xmlns=..."), DefaultOptions(), Ignored, "unsupported XML"},
		{"mesh version header", []byte("version 1.00\nmesh data"), DefaultOptions(), Mesh, ""},
		{"quoted version is not mesh", []byte(`{"version": "1.0"}`), DefaultOptions(), Ignored, "client version JSON"},
		{"translation list json ignored", []byte(`{"translations": {}}`), DefaultOptions(), Ignored, "translation list JSON"},
		{"translation entry", []byte(`{"locale":"en-us","entries":{}}`), DefaultOptions(), Translation, ""},
		{"png", append([]byte("\x89PNG\r\n\x1a\n"), 0, 0, 0, 0), DefaultOptions(), ImagePNG, ""},
		{"gif87", []byte("GIF87a..."), DefaultOptions(), ImageGIF, ""},
		{"gif89", []byte("GIF89a..."), DefaultOptions(), ImageGIF, ""},
		{"jpeg jfif", append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, []byte("JFIF")...), DefaultOptions(), ImageJPEG, ""},
		{"jpeg exif", append([]byte{0xFF, 0xD8, 0xFF, 0xE1}, []byte("Exif")...), DefaultOptions(), ImageJPEG, ""},
		{"webp avatar blocked", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), Options{BlockAvatarImages: true}, ImageWebPAvatar, ""},
		{"webp safe when unblocked", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), Options{BlockAvatarImages: false}, ImageWebPSafe, ""},
		{"ogg", []byte("OggS\x00\x02..."), DefaultOptions(), AudioOGG, ""},
		{"mp3 id3", []byte("ID3\x03\x00\x00..."), DefaultOptions(), AudioMP3, ""},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, DefaultOptions(), AudioMP3, ""},
		{"ktx texture", []byte("\xabKTX 11\xbb\r\n\x1a\n"), DefaultOptions(), KtxTexture, ""},
		{"hls playlist", []byte("#EXTM3U\n#EXT-X-VERSION:3\n"), DefaultOptions(), HlsPlaylist, ""},
		{"font list", []byte(`{"name": "Roboto","faces":[]}`), DefaultOptions(), FontList, ""},
		{"flags json", []byte(`{"applicationSettings":{}}`), DefaultOptions(), Ignored, "flags JSON"},
		{"client version json", []byte(`{"version": 123}`), DefaultOptions(), Ignored, "client version JSON"},
		{"bare font gdef", []byte("\x00\x01\x00\x00GDEF"), DefaultOptions(), Ignored, "bare font"},
		{"bare font gpos", []byte("\x00\x01\x00\x00GPOS"), DefaultOptions(), Ignored, "bare font"},
		{"bare font gsub", []byte("\x00\x01\x00\x00GSUB"), DefaultOptions(), Ignored, "bare font"},
		{"zstd frame", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x00, 0x00}, DefaultOptions(), Ignored, "zstd"},
		{"matroska fragment", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x00}, DefaultOptions(), Ignored, "matroska fragment"},
		{"unknown garbage", []byte{0x01, 0x02, 0x03, 0x04}, DefaultOptions(), Unknown, ""},
		{"empty body", []byte{}, DefaultOptions(), Unknown, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Identify(tc.body, tc.opts)
			if result.Kind != tc.wantKind {
				t.Errorf("Kind = %v, want %v", result.Kind, tc.wantKind)
			}
			if result.Reason != tc.wantReason {
				t.Errorf("Reason = %q, want %q", result.Reason, tc.wantReason)
			}
		})
	}
}

func TestIdentify_PrefixWindowOnly(t *testing.T) {
	// OggS at the very start should match even with a huge trailing body;
	// identification must not scan the whole payload.
	body := append([]byte("OggS"), make([]byte, 10_000)...)
	result := Identify(body, DefaultOptions())
	if result.Kind != AudioOGG {
		t.Errorf("Kind = %v, want AudioOGG", result.Kind)
	}
}

func TestIdentify_Deterministic(t *testing.T) {
	body := []byte(`{"locale":"en-us"}`)
	first := Identify(body, DefaultOptions())
	second := Identify(body, DefaultOptions())
	if first.Kind != second.Kind || first.Reason != second.Reason {
		t.Errorf("identify is not deterministic: %+v vs %+v", first, second)
	}
}

func TestKind_Category(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{RbxmModel, "RBXM"},
		{ImagePNG, "Textures"},
		{KtxTexture, "Textures"},
		{AudioOGG, "Sounds"},
		{AudioMP3, "Sounds"},
		{HlsPlaylist, "Videos"},
		{FontList, "Fonts"},
		{Translation, "Translations"},
		{Ignored, ""},
		{Unknown, ""},
	}

	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			if got := tc.kind.Category(); got != tc.want {
				t.Errorf("Category() = %q, want %q", got, tc.want)
			}
		})
	}
}
