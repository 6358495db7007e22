package publisher

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/go-scenario-kit/pkg/asset"
	"github.com/shouni/go-scenario-kit/pkg/domain"
)

// AssetManager はカット画像の保存パスと永続化を管理します。
type AssetManager struct {
	writer  remoteio.OutputWriter
	baseDir string // 画像の保存先ディレクトリ (例: "output/images")
}

func NewAssetManager(writer remoteio.OutputWriter, baseDir string) *AssetManager {
	return &AssetManager{
		writer:  writer,
		baseDir: baseDir,
	}
}

// SaveCutImage は data URI をデコードしてカット pos（1 始まり）の画像として保存し、
// ファイル名（cut_1.png 等）を返します。拡張子は宣言された MIME ではなく中身から決めるのだ。
func (am *AssetManager) SaveCutImage(ctx context.Context, pos int, ref domain.ImageReference) (string, error) {
	data, declared, err := ref.Decode()
	if err != nil {
		return "", fmt.Errorf("asset_manager: 画像のデコードに失敗しました: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("asset_manager: 画像データが空です")
	}

	mime := mimetype.Detect(data)
	ext := mime.Extension()
	contentType := mime.String()
	if ext == "" {
		if m := mimetype.Lookup(declared); m != nil {
			ext = m.Extension()
			contentType = m.String()
		}
	}

	fileName, err := asset.CutFileName(pos, ext)
	if err != nil {
		return "", err
	}
	fullPath, err := asset.ResolvePath(am.baseDir, fileName)
	if err != nil {
		return "", fmt.Errorf("asset_manager: 出力パスの解決に失敗しました: %w", err)
	}
	if err := am.writer.Write(ctx, fullPath, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("asset_manager: 画像の保存に失敗しました %s: %w", fullPath, err)
	}
	return path.Base(fileName), nil
}
