package sqlinline

// SchemaGenerationTasks creates the generation_tasks table. Applied by `taskctl migrate`.
const SchemaGenerationTasks = `--sql 7c1d2e90-5b3a-4f1e-8a6d-2e4f9b0c3d71
create table if not exists generation_tasks (
  id              uuid primary key,
  task_id         text not null,
  owner_id        text not null,
  task_type       text not null check (task_type in ('text-to-3d', 'text-to-3d-refine', 'image-to-3d')),
  mode            text not null check (mode in ('preview', 'refine')),
  preview_task_id text,
  prompt          text,
  image_url       text,
  art_style       text,
  ai_model        text,
  enable_pbr      boolean not null default false,
  texture_prompt  text,
  status          text not null default 'PENDING',
  progress        int not null default 0 check (progress between 0 and 100),
  model_url       text,
  thumbnail_url   text,
  error_message   text,
  credits_used    int not null default 0,
  created_at      timestamptz not null default now(),
  updated_at      timestamptz not null default now(),
  completed_at    timestamptz,
  constraint generation_tasks_task_id_key unique (task_id)
);
create index if not exists generation_tasks_owner_created_idx
  on generation_tasks (owner_id, created_at desc);
`

const QInsertGenerationTask = `--sql 3a9f4c2e-8d17-4b6a-9e05-c1f7a2d84b36
insert into generation_tasks (
  id, task_id, owner_id, task_type, mode, preview_task_id,
  prompt, image_url, art_style, ai_model, enable_pbr, texture_prompt,
  status, progress, credits_used
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
returning created_at, updated_at;
`

const generationTaskColumns = `
  id::text, task_id, owner_id, task_type, mode, preview_task_id,
  prompt, image_url, art_style, ai_model, enable_pbr, texture_prompt,
  status, progress, model_url, thumbnail_url, error_message, credits_used,
  created_at, updated_at, completed_at`

const QSelectGenerationTaskByID = `--sql 9e2b7d41-0c6f-4a38-b1d5-6f8a3e27c904
select` + generationTaskColumns + `
from generation_tasks
where id = $1;
`

const QSelectGenerationTaskByTaskID = `--sql 5d8c1b3f-7a24-4e96-8f0b-2a6e9c41d7e5
select` + generationTaskColumns + `
from generation_tasks
where task_id = $1;
`

const QListGenerationTasksByOwner = `--sql c4e7a9d2-3f18-4b5c-a6e0-8d1b5f2c9a73
select` + generationTaskColumns + `
from generation_tasks
where owner_id = $1
order by created_at desc, id desc
limit $2;
`

// QApplyGenerationTaskUpdate writes a reconciled callback. The where clause keeps
// terminal rows frozen and refuses to move a row back to a lower-ranked status, so
// racing or reordered deliveries cannot regress a task. completed_at is stamped once.
const QApplyGenerationTaskUpdate = `--sql 1b6f8e3a-d5c2-4079-9a4e-7e3c0b8f2d15
update generation_tasks
set status        = $2::text,
    progress      = coalesce($3::int, progress),
    model_url     = coalesce($4::text, model_url),
    thumbnail_url = coalesce($5::text, thumbnail_url),
    error_message = coalesce($6::text, error_message),
    completed_at  = coalesce(completed_at, $7::timestamptz),
    updated_at    = now()
where task_id = $1
  and status not in ('SUCCEEDED', 'FAILED', 'CANCELED')
  and (case status when 'IN_PROGRESS' then 1 else 0 end)
      <= (case $2::text
            when 'IN_PROGRESS' then 1
            when 'SUCCEEDED' then 2
            when 'FAILED' then 2
            when 'CANCELED' then 2
            else 0
          end);
`
