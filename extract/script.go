package extract

// Script bodies executed by the interpreter. All dynamic values (URL, flags,
// format selector, job id, destination, user agent) travel as argv, never as
// interpolated source text.

const probeScript = `import json
import sys

import yt_dlp

url = sys.argv[1]
user_agent = sys.argv[2]

try:
    with yt_dlp.YoutubeDL({
        'quiet': True,
        'user_agent': user_agent,
        'cookiesfrombrowser': None,
    }) as ydl:
        info = ydl.extract_info(url, download=False)
        print(json.dumps({
            'title': info.get('title', ''),
            'thumbnail': info.get('thumbnail', ''),
            'duration': info.get('duration') or 0,
            'uploader': info.get('uploader', ''),
            'view_count': info.get('view_count') or 0,
            'formats': [
                {
                    'format_id': f.get('format_id', ''),
                    'ext': f.get('ext', ''),
                    'height': f.get('height') or 0,
                    'filesize': f.get('filesize') or 0,
                    'vcodec': f.get('vcodec') or '',
                }
                for f in info.get('formats', [])
            ],
        }))
except Exception as e:
    print(json.dumps({'error': str(e)}))
`

const linkScript = `import json
import sys

import yt_dlp

url = sys.argv[1]
format_str = sys.argv[2]
user_agent = sys.argv[3]

try:
    with yt_dlp.YoutubeDL({
        'quiet': True,
        'format': format_str,
        'user_agent': user_agent,
        'cookiesfrombrowser': None,
    }) as ydl:
        info = ydl.extract_info(url, download=False)
        print(json.dumps({
            'url': info.get('url') or (info['formats'][0]['url'] if info.get('formats') else None),
            'title': info.get('title', 'download'),
            'ext': info.get('ext', 'mp4'),
        }))
except Exception as e:
    print(json.dumps({'error': str(e)}))
`

const downloadScript = `import os
import shutil
import sys
import tempfile

import yt_dlp

url = sys.argv[1]
download_audio = sys.argv[2] == '1'
download_video = sys.argv[3] == '1'
video_format = sys.argv[4]
download_id = sys.argv[5]
dest_dir = sys.argv[6]
user_agent = sys.argv[7]

work_dir = tempfile.mkdtemp()
os.makedirs(dest_dir, exist_ok=True)


def report(d):
    if d.get('status') == 'downloading':
        print('PROGRESS:%s:%s' % (download_id, d.get('_percent_str', '').strip()), flush=True)


def move_to_dest(suffix):
    for name in os.listdir(work_dir):
        if not name.endswith(suffix):
            continue
        dest = os.path.join(dest_dir, name)
        base, ext = os.path.splitext(name)
        counter = 2
        while os.path.exists(dest):
            dest = os.path.join(dest_dir, '%s (%d)%s' % (base, counter, ext))
            counter += 1
        shutil.move(os.path.join(work_dir, name), dest)


try:
    if download_audio:
        print('Downloading audio...', flush=True)
        audio_opts = {
            'format': 'bestaudio/best',
            'outtmpl': os.path.join(work_dir, '%(title)s.%(ext)s'),
            'postprocessors': [{
                'key': 'FFmpegExtractAudio',
                'preferredcodec': 'mp3',
                'preferredquality': '320',
            }],
            'progress_hooks': [report],
            'nopart': True,
            'keepvideo': False,
            'user_agent': user_agent,
            'cookiesfrombrowser': None,
        }
        with yt_dlp.YoutubeDL(audio_opts) as ydl:
            ydl.download([url])
        move_to_dest('.mp3')

    if download_video:
        print('Downloading video...', flush=True)
        video_opts = {
            'format': video_format,
            'outtmpl': os.path.join(work_dir, '%(title)s.%(ext)s'),
            'merge_output_format': 'mp4',
            'progress_hooks': [report],
            'nopart': True,
            'keepvideo': False,
            'user_agent': user_agent,
            'cookiesfrombrowser': None,
        }
        with yt_dlp.YoutubeDL(video_opts) as ydl:
            ydl.download([url])
        move_to_dest('.mp4')

    print('SUCCESS: download complete')
except Exception as e:
    print('ERROR: %s' % e, file=sys.stderr)
    sys.exit(1)
finally:
    shutil.rmtree(work_dir, ignore_errors=True)
`
