package dump

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = b
	return &s3.PutObjectOutput{}, nil
}

func TestOpenSink(t *testing.T) {
	ctx := context.Background()

	t.Run("stdout", func(t *testing.T) {
		for _, location := range []string{"", "-"} {
			var buf bytes.Buffer
			sink, err := OpenSink(ctx, location, WithStdout(&buf))
			require.NoError(t, err)
			_, err = sink.Write([]byte("record\n"))
			require.NoError(t, err)
			require.NoError(t, sink.Close(ctx))
			require.Equal(t, "record\n", buf.String())
			require.Equal(t, "-", sink.Location())
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.xml")
		sink, err := OpenSink(ctx, path)
		require.NoError(t, err)
		_, err = sink.Write([]byte("record\n"))
		require.NoError(t, err)
		require.NoError(t, sink.Close(ctx))

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "record\n", string(b))
	})

	t.Run("missing_directory", func(t *testing.T) {
		_, err := OpenSink(ctx, filepath.Join(t.TempDir(), "nope", "dump.xml"))
		require.Error(t, err)
	})

	t.Run("s3_uploads_on_close", func(t *testing.T) {
		putter := &fakePutter{}
		sink, err := OpenSink(ctx, "s3://dumps/2024/870970.xml", WithObjectPutter(putter))
		require.NoError(t, err)
		_, err = sink.Write([]byte("first\n"))
		require.NoError(t, err)
		_, err = sink.Write([]byte("second\n"))
		require.NoError(t, err)
		require.Nil(t, putter.body)

		spool := sink.(*s3Sink).File.Name()
		require.NoError(t, sink.Close(ctx))
		require.Equal(t, "dumps", putter.bucket)
		require.Equal(t, "2024/870970.xml", putter.key)
		require.Equal(t, "first\nsecond\n", string(putter.body))

		_, err = os.Stat(spool)
		require.True(t, os.IsNotExist(err))
	})

	t.Run("s3_upload_failure", func(t *testing.T) {
		putter := &fakePutter{err: errors.New("access denied")}
		sink, err := OpenSink(ctx, "s3://dumps/870970.xml", WithObjectPutter(putter))
		require.NoError(t, err)
		require.ErrorContains(t, sink.Close(ctx), "access denied")
	})
}

func TestParseS3Location(t *testing.T) {
	bucket, key, err := ParseS3Location("s3://dumps/a/b.xml")
	require.NoError(t, err)
	require.Equal(t, "dumps", bucket)
	require.Equal(t, "a/b.xml", key)

	for _, bad := range []string{"s3://dumps", "s3://dumps/", "s3:///key", "http://dumps/key"} {
		_, _, err := ParseS3Location(bad)
		require.Error(t, err, bad)
	}
}
