package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BerniceZTT/pmis_end/models"
	"github.com/BerniceZTT/pmis_end/utils"
)

// StoredFile 读取到的文件
type StoredFile struct {
	io.ReadCloser
	StoredName   string
	OriginalName string
	MimeType     string
	Size         int64
}

// FileStore 证明材料与计量簿文件存储
type FileStore interface {
	// Save 写入文件内容，调用方需先填好 ref.StoredName，写入后回填大小与上传时间
	Save(ctx context.Context, ref *models.FileRef, content io.Reader) error
	Open(ctx context.Context, storedName string) (*StoredFile, error)
	Delete(ctx context.Context, storedName string) error
}

type gridFSFileStore struct {
	bucket *gridfs.Bucket
}

// fileMetadata GridFS 文件元数据
type fileMetadata struct {
	OriginalName string              `bson:"originalName"`
	MimeType     string              `bson:"mimeType"`
	Category     models.FileCategory `bson:"category"`
}

// NewGridFSFileStore 创建基于GridFS的文件存储
func NewGridFSFileStore(db *mongo.Database) (FileStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(FilesBucket))
	if err != nil {
		return nil, fmt.Errorf("创建GridFS存储桶失败: %w", err)
	}
	return &gridFSFileStore{bucket: bucket}, nil
}

func (s *gridFSFileStore) Save(ctx context.Context, ref *models.FileRef, content io.Reader) error {
	uploadOpts := options.GridFSUpload().SetMetadata(fileMetadata{
		OriginalName: ref.OriginalName,
		MimeType:     ref.MimeType,
		Category:     ref.Category,
	})

	stream, err := s.bucket.OpenUploadStream(ref.StoredName, uploadOpts)
	if err != nil {
		return fmt.Errorf("打开上传流失败: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}

	size, err := io.Copy(stream, content)
	if err != nil {
		_ = stream.Abort()
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("关闭上传流失败: %w", err)
	}

	ref.FileSize = size
	ref.UploadedAt = time.Now()
	utils.LogDbOperation("upload", FilesBucket, ref.StoredName, size)
	return nil
}

func (s *gridFSFileStore) Open(ctx context.Context, storedName string) (*StoredFile, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(storedName)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("打开下载流失败: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}

	file := stream.GetFile()
	var meta fileMetadata
	if len(file.Metadata) > 0 {
		if err := bson.Unmarshal(file.Metadata, &meta); err != nil {
			utils.Logger.Warn().Err(err).Str("storedName", storedName).Msg("解析文件元数据失败")
		}
	}
	if meta.MimeType == "" {
		meta.MimeType = "application/octet-stream"
	}

	return &StoredFile{
		ReadCloser:   stream,
		StoredName:   storedName,
		OriginalName: meta.OriginalName,
		MimeType:     meta.MimeType,
		Size:         file.Length,
	}, nil
}

func (s *gridFSFileStore) Delete(ctx context.Context, storedName string) error {
	cursor, err := s.bucket.Find(bson.M{"filename": storedName})
	if err != nil {
		return fmt.Errorf("查找文件失败: %w", err)
	}
	defer cursor.Close(ctx)

	var files []gridfs.File
	if err := cursor.All(ctx, &files); err != nil {
		return fmt.Errorf("解析文件列表失败: %w", err)
	}
	if len(files) == 0 {
		return ErrFileNotFound
	}

	for _, f := range files {
		if err := s.bucket.Delete(f.ID); err != nil {
			return fmt.Errorf("删除文件失败: %w", err)
		}
	}
	return nil
}
